package execution

import (
	"context"
	"fmt"

	"github.com/tabsdata-labs/tabsdata-go/internal/frame"
	"github.com/tabsdata-labs/tabsdata-go/internal/offset"
	"github.com/tabsdata-labs/tabsdata-go/internal/source"
)

// Run drives one invocation through its strict sequence: folders, input
// resolution, checkpoint load, user function, checkpoint reconciliation,
// result export, response. Any fatal condition propagates; the supervisor
// owns retries.
func Run(ctx context.Context, ec *Context) error {
	if err := ec.paths.CreateRequiredFolders(); err != nil {
		return err
	}

	src, err := ec.Source()
	if err != nil {
		return err
	}
	if err := checkInputSlots(ec, src); err != nil {
		return err
	}
	dst, err := ec.Destination()
	if err != nil {
		return err
	}
	if err := checkOutputSlots(ec, dst); err != nil {
		return err
	}

	ledger, err := ec.Ledger()
	if err != nil {
		return err
	}
	if err := ledger.Load(ctx, ec.req); err != nil {
		return err
	}

	produced, err := src.Produce(ctx, ec.req.Input, ledger.Current())
	if err != nil {
		return err
	}

	fn, err := ec.Function()
	if err != nil {
		return err
	}
	outputTables := make([]string, 0, len(ec.req.Output))
	for _, table := range ec.req.Output {
		outputTables = append(outputTables, table.Name)
	}
	result, err := fn.Call(ctx, Call{
		Inputs:       produced.Inputs,
		Offset:       ledger.Current(),
		TriggeredOn:  ec.req.TriggeredOn,
		OutputTables: outputTables,
	})
	if err != nil {
		return err
	}

	if err := reconcileOffset(ledger, src, produced, result); err != nil {
		return err
	}

	if len(result.Outputs) != len(dst.TableNames()) {
		return fmt.Errorf("function produced %d results but destination declares %d tables",
			len(result.Outputs), len(dst.TableNames()))
	}
	stamp := frame.NewStamp(ec.req.TransactionID, ec.req.TriggeredOn)
	modified, err := dst.Consume(ctx, result.Outputs, ec.req.Output, stamp)
	if err != nil {
		return err
	}

	if err := ledger.Store(ctx, ec.req, ec.req.TriggeredOn, ec.req.TransactionID); err != nil {
		return err
	}

	return writeResponse(ec.paths.ResponseFile(), ec.req, modified, ledger.Report())
}

// reconcileOffset applies the run's checkpoint outcome. A function-level
// update wins over the update the source strategy computed itself.
func reconcileOffset(ledger *offset.Ledger, src source.Source, produced source.Produced, result Result) error {
	if !src.ReturnsOffsetValues() {
		return nil
	}
	raw := result.OffsetUpdate
	if raw == nil {
		raw = produced.OffsetUpdate
	}
	if raw == nil {
		return nil
	}
	update, err := offset.ParseUpdate(raw)
	if err != nil {
		return err
	}
	return ledger.Apply(update)
}

// checkInputSlots enforces the positional contract between the request's
// input slots and the declared source tables before any data moves.
func checkInputSlots(ec *Context, src source.Source) error {
	declared := len(src.TableNames())
	got := len(ec.req.Input)
	if got != declared {
		return fmt.Errorf("request declares %d input slots but source declares %d tables", got, declared)
	}
	if got == 0 {
		spec := ec.config.Source
		if !spec.AllowsZeroTables() {
			return fmt.Errorf("source kind %q requires at least one table", spec.Kind)
		}
	}
	return nil
}

func checkOutputSlots(ec *Context, dst source.Destination) error {
	declared := len(dst.TableNames())
	got := len(ec.req.Output)
	if got != declared {
		return fmt.Errorf("request declares %d output slots but destination declares %d tables", got, declared)
	}
	return nil
}
