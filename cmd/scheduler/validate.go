package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qlp-hq/production-scheduler/internal/engine"
)

var validateCmd = &cobra.Command{
	Use:   "validate <bundle.json>",
	Short: "Load a bundle, build its dependency graph, and run the baseline schedule purely to check invariants",
	Args:  cobra.ExactArgs(1),
	RunE:  doValidate,
}

func doValidate(cmd *cobra.Command, args []string) error {
	lr, err := loadRun(args[0])
	if err != nil {
		return err
	}

	sch := engine.RunScenario1(lr.dag, lr.bnd, lr.cal, lr.cfg, nil)
	if errs := sch.CheckInvariants(lr.bnd, lr.cal); len(errs) > 0 {
		for _, e := range errs {
			fmt.Println("invariant violation:", e)
		}
		return fmt.Errorf("%d invariant violations found", len(errs))
	}

	fmt.Printf("ok: %d placed, %d failed\n", len(sch.Placements), len(sch.Failed))
	return nil
}
