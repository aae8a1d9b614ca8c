package course

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/lumina/core"
)

var (
	ErrDuplicateModuleID    = errors.New("module ids must be unique within a course")
	ErrDuplicateModuleOrder = errors.New("module orders must be unique within a course")
)

// validateModules checks the per-course module invariants: unique ids and unique orders.
// Gaps in the order sequence are allowed (deleting a module does not renumber).
func validateModules(mods []Module) error {
	ids := make(map[string]struct{}, len(mods))
	orders := make(map[int]struct{}, len(mods))
	for i, mod := range mods {
		if mod.ID != "" {
			if _, ok := ids[mod.ID]; ok {
				return core.NewValidationError(ErrDuplicateModuleID, core.FieldError{
					Field: fmt.Sprintf("modules[%d].id", i),
					Error: ErrDuplicateModuleID.Error(),
				})
			}
			ids[mod.ID] = struct{}{}
		}
		if _, ok := orders[mod.Order]; ok {
			return core.NewValidationError(ErrDuplicateModuleOrder, core.FieldError{
				Field: fmt.Sprintf("modules[%d].order", i),
				Error: ErrDuplicateModuleOrder.Error(),
			})
		}
		orders[mod.Order] = struct{}{}
	}
	return nil
}
