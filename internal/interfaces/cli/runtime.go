package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	appassessment "github.com/orbitsec/spacerisk/internal/application/assessment"
	"github.com/orbitsec/spacerisk/internal/application/controls"
	"github.com/orbitsec/spacerisk/internal/application/rollup"
	"github.com/orbitsec/spacerisk/internal/domain/assessment"
	"github.com/orbitsec/spacerisk/internal/infrastructure/catalog/csvcatalog"
)

// runtime is the in-process service stack one command invocation works
// against: catalogs from config, the score store hydrated from the state
// file, and the services over them.
type runtime struct {
	cli        *CLIContext
	catalogs   *csvcatalog.Catalogs
	store      *assessment.Store
	assessment *appassessment.Service
	engine     *controls.Engine
	rollup     *rollup.Service
}

// newRuntime loads catalogs and replays the state file into a fresh store.
func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, err
	}

	catalogs, err := csvcatalog.Load(cliCtx.Config.Catalog, cliCtx.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalogs: %w", err)
	}

	store := assessment.NewStore()
	state, err := loadState(cliCtx.StatePath)
	if err != nil {
		return nil, err
	}
	if err := store.Restore(state.Scores); err != nil {
		return nil, fmt.Errorf("state file holds invalid scores: %w", err)
	}

	engine := controls.NewEngine(store, catalogs.Controls(), catalogs.Assets(), catalogs.Threats(), cliCtx.Logger, nil)
	engine.RestoreApplied(state.Applied)

	return &runtime{
		cli:        cliCtx,
		catalogs:   catalogs,
		store:      store,
		assessment: appassessment.NewService(store, catalogs.Assets(), nil, cliCtx.Logger, nil),
		engine:     engine,
		rollup:     rollup.NewService(store, catalogs.Assets(), catalogs.Threats(), cliCtx.Logger),
	}, nil
}

// save persists the current store and applied set back to the state file.
func (r *runtime) save() error {
	return saveState(r.cli.StatePath, &assessmentState{
		Scores:  r.store.Export(),
		Applied: r.engine.Applied(),
	})
}
