// Package request parses per-invocation request documents. Two wire
// generations exist; both are normalized into one Invocation at this
// boundary, and no version conditionals survive past it.
package request

import (
	"errors"
	"fmt"
	"time"

	"github.com/tabsdata-labs/tabsdata-go/internal/domain"
)

// Invocation is the canonical, immutable view of one work unit's request
// document.
type Invocation struct {
	Work              int
	ExecutionID       string
	TransactionID     string
	TriggeredOn       time.Time
	FunctionBundleURI string
	FunctionData      domain.Location
	Input             []domain.InputSlot
	Output            []domain.Table
	SystemInput       []domain.Table
	SystemOutput      []domain.Table
}

// System slot 0 holds the offset/initial-values table. This is a
// positional contract; the slot name is advisory.
const offsetSlot = 0

var ErrNoSystemInput = errors.New("request has no system input slots")
var ErrNoSystemOutput = errors.New("request has no system output slots")

func (inv *Invocation) OffsetInput() (domain.Table, error) {
	if len(inv.SystemInput) <= offsetSlot {
		return domain.Table{}, ErrNoSystemInput
	}
	return inv.SystemInput[offsetSlot], nil
}

func (inv *Invocation) OffsetOutput() (domain.Table, error) {
	if len(inv.SystemOutput) <= offsetSlot {
		return domain.Table{}, ErrNoSystemOutput
	}
	return inv.SystemOutput[offsetSlot], nil
}

func (inv *Invocation) validate() error {
	if inv.FunctionBundleURI == "" {
		return errors.New("request is missing function_bundle_uri")
	}
	if inv.ExecutionID == "" {
		return errors.New("request is missing execution_id")
	}
	if inv.TransactionID == "" {
		return errors.New("request is missing transaction_id")
	}
	for i, slot := range inv.Input {
		if slot.Table == nil && slot.Versions == nil {
			return fmt.Errorf("input slot %d is neither a table nor a version group", i)
		}
	}
	return nil
}
