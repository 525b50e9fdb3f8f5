package services

import (
	"fmt"
	"strings"

	"github.com/commedeschamps/Uly-Dala-Coffee/internal/domain"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/platform/config"
)

// AccessPolicy decides what an actor may do to orders. The privileged role
// sets come from configuration so deployments can extend them without code
// changes.
type AccessPolicy struct {
	staff    map[string]struct{}
	admin    map[string]struct{}
	priority map[string]struct{}
}

// NewAccessPolicy builds a policy from the configured role sets.
func NewAccessPolicy(cfg config.PolicyConfig) AccessPolicy {
	return AccessPolicy{
		staff:    roleSet(cfg.StaffRoles),
		admin:    roleSet(cfg.AdminRoles),
		priority: roleSet(cfg.PriorityRoles),
	}
}

func roleSet(roles []string) map[string]struct{} {
	set := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		role = strings.ToLower(strings.TrimSpace(role))
		if role == "" {
			continue
		}
		set[role] = struct{}{}
	}
	return set
}

// IsStaff reports whether the role belongs to the fulfillment staff set.
func (p AccessPolicy) IsStaff(role domain.Role) bool {
	_, ok := p.staff[strings.ToLower(string(role))]
	return ok
}

// IsAdmin reports whether the role belongs to the administrator set.
func (p AccessPolicy) IsAdmin(role domain.Role) bool {
	_, ok := p.admin[strings.ToLower(string(role))]
	return ok
}

// CanSetPriority reports whether the role may flag orders for priority
// preparation.
func (p AccessPolicy) CanSetPriority(role domain.Role) bool {
	_, ok := p.priority[strings.ToLower(string(role))]
	return ok
}

// AuthorizeCreate checks the placement request against the actor's
// privileges. Priority is silently reserved to the configured roles.
func (p AccessPolicy) AuthorizeCreate(actor Actor, priority bool) error {
	if actor.ID == "" {
		return fmt.Errorf("%w: missing actor", ErrForbidden)
	}
	if priority && !p.CanSetPriority(actor.Role) {
		return fmt.Errorf("%w: role %q may not request priority preparation", ErrForbidden, actor.Role)
	}
	return nil
}

// AuthorizeRead permits owners and staff to view an order.
func (p AccessPolicy) AuthorizeRead(actor Actor, order domain.Order) error {
	if p.IsStaff(actor.Role) || order.UserID == actor.ID {
		return nil
	}
	return fmt.Errorf("%w: order belongs to another customer", ErrForbidden)
}

// ListScope returns the user filter for a listing. Staff asking for the
// full book get an empty filter; everyone else is pinned to their own
// orders regardless of what they asked for.
func (p AccessPolicy) ListScope(actor Actor, requestAll bool) string {
	if requestAll && p.IsStaff(actor.Role) {
		return ""
	}
	return actor.ID
}

// AuthorizeUpdate applies the field-level update rules: owners may edit
// their own order, staff outside the admin set may touch nothing but the
// status, and priority stays gated to the priority roles.
func (p AccessPolicy) AuthorizeUpdate(actor Actor, order domain.Order, changes OrderChanges) error {
	isOwner := order.UserID == actor.ID
	isStaff := p.IsStaff(actor.Role)
	if !isOwner && !isStaff {
		return fmt.Errorf("%w: order belongs to another customer", ErrForbidden)
	}
	if isStaff && !p.IsAdmin(actor.Role) && !isOwner {
		if changes.Items != nil || changes.Notes != nil || changes.PickupTime != nil || changes.Priority != nil {
			return fmt.Errorf("%w: staff may only change the order status", ErrForbidden)
		}
		if changes.Status == nil {
			return fmt.Errorf("%w: staff updates must include a status", ErrForbidden)
		}
	}
	if changes.Priority != nil && *changes.Priority != order.Priority && !p.CanSetPriority(actor.Role) {
		return fmt.Errorf("%w: role %q may not change priority preparation", ErrForbidden, actor.Role)
	}
	return nil
}

// AuthorizeDelete allows admins to delete any order and owners to delete
// their own while it is still pending.
func (p AccessPolicy) AuthorizeDelete(actor Actor, order domain.Order) error {
	if p.IsAdmin(actor.Role) {
		return nil
	}
	if order.UserID != actor.ID {
		return fmt.Errorf("%w: order belongs to another customer", ErrForbidden)
	}
	if order.Status != domain.OrderStatusPending {
		return fmt.Errorf("%w: only pending orders can be deleted", ErrForbidden)
	}
	return nil
}
