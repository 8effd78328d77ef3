// Seeder creates the demo agents the quickstart flow negotiates with.
// Safe to run multiple times; existing agents are updated in place.
package main

import (
	"context"
	"time"

	"github.com/taklabs/coordinator/internal/config"
	"github.com/taklabs/coordinator/internal/store"
	"github.com/taklabs/coordinator/pkg/logger"
	"github.com/taklabs/coordinator/pkg/model"
	"github.com/taklabs/coordinator/pkg/utils"
)

func main() {
	cfg := config.Load()
	logger.Init("seeder", cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logg.Info("connecting to DSN: ", utils.MaskDSN(cfg.DatabaseURL))
	st, err := store.NewPG(ctx, cfg.DatabaseURL, store.PoolConfig{}, logg.Desugar())
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		logg.Fatalw("failed to migrate schema", "error", err)
	}

	agents := []model.Agent{
		{
			ID:          "agt_buyer_seed_001",
			Name:        "BuyerAgent",
			Description: "Discovers and negotiates data services",
			EndpointURL: "https://agents.example/buyer",
			Status:      "active",
			CreatedAt:   time.Now().UTC(),
		},
		{
			ID:          "agt_data_seed_001",
			Name:        "DataAgent",
			Description: "Provides normalized market data packages on request",
			EndpointURL: "https://agents.example/data",
			Status:      "active",
			CreatedAt:   time.Now().UTC(),
		},
	}

	for _, a := range agents {
		if err := st.PutAgent(ctx, a); err != nil {
			logg.Fatalw("failed to seed agent", "agent", a.Name, "error", err)
		}
		logg.Infow("seeded agent", "id", a.ID, "name", a.Name)
	}

	logg.Info("seed complete")
}
