package services

import (
	"errors"
	"fmt"

	"github.com/commedeschamps/Uly-Dala-Coffee/internal/domain"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/platform/config"
)

// StatusMachine enforces the order lifecycle. The status vocabulary and the
// terminal set are configuration-driven; the customer self-service rule
// (cancelling a pending order) is fixed.
type StatusMachine struct {
	ordered  []domain.OrderStatus
	statuses map[domain.OrderStatus]struct{}
	terminal map[domain.OrderStatus]struct{}
}

// NewStatusMachine builds a machine from the configured vocabulary. The
// first configured status is the initial one for new orders.
func NewStatusMachine(cfg config.OrdersConfig) (*StatusMachine, error) {
	if len(cfg.Statuses) == 0 {
		return nil, errors.New("status machine: empty status vocabulary")
	}
	machine := &StatusMachine{
		ordered:  make([]domain.OrderStatus, 0, len(cfg.Statuses)),
		statuses: make(map[domain.OrderStatus]struct{}, len(cfg.Statuses)),
		terminal: make(map[domain.OrderStatus]struct{}, len(cfg.TerminalStatuses)),
	}
	for _, raw := range cfg.Statuses {
		status := domain.OrderStatus(raw)
		if _, ok := machine.statuses[status]; ok {
			continue
		}
		machine.statuses[status] = struct{}{}
		machine.ordered = append(machine.ordered, status)
	}
	for _, raw := range cfg.TerminalStatuses {
		status := domain.OrderStatus(raw)
		if _, ok := machine.statuses[status]; !ok {
			return nil, fmt.Errorf("status machine: terminal status %q not in vocabulary", raw)
		}
		machine.terminal[status] = struct{}{}
	}
	return machine, nil
}

// Initial returns the status assigned to new orders.
func (m *StatusMachine) Initial() domain.OrderStatus {
	return m.ordered[0]
}

// IsValid reports whether the status belongs to the configured vocabulary.
func (m *StatusMachine) IsValid(status domain.OrderStatus) bool {
	_, ok := m.statuses[status]
	return ok
}

// IsTerminal reports whether the status ends the order lifecycle.
func (m *StatusMachine) IsTerminal(status domain.OrderStatus) bool {
	_, ok := m.terminal[status]
	return ok
}

// Authorize validates a requested status change. Terminal orders are
// immutable for everyone. Staff may move an order to any enumerated status;
// customers may only cancel an order that is still pending.
func (m *StatusMachine) Authorize(staff bool, current, target domain.OrderStatus) error {
	if !m.IsValid(target) {
		return fmt.Errorf("%w: unknown order status %q", ErrValidation, target)
	}
	if target == current {
		return nil
	}
	if m.IsTerminal(current) {
		return fmt.Errorf("%w: order is already %s", ErrConflict, current)
	}
	if staff {
		return nil
	}
	if current == domain.OrderStatusPending && target == domain.OrderStatusCancelled {
		return nil
	}
	return fmt.Errorf("%w: customers may only cancel a pending order", ErrForbidden)
}
