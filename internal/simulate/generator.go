package simulate

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/okian/duel/internal/adapters/repository"
	"github.com/okian/duel/internal/domain/model"
	"github.com/okian/duel/pkg/logger"
)

// strengthSpread scales hidden strengths; one unit is one voter temperature.
const strengthSpread = 4.0

// Truth maps an item name to its hidden strength.
type Truth map[string]float64

// Seeder is the part of the store a simulation writes to.
type Seeder interface {
	AddRecord(ctx context.Context, contextID string, c model.Candidate) (string, error)
	AddChallenger(ctx context.Context, contextID string, d model.Display) (string, error)
}

// Seed fills contextID with cfg.Items established items and cfg.Challengers
// catalog challengers, each with a random hidden strength.
func Seed(ctx context.Context, s Seeder, cfg Config, rating float64, log logger.Logger) (Truth, error) {
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // synthetic data
	truth := make(Truth, cfg.Items+cfg.Challengers)

	log.Info(ctx, "seeding collection",
		logger.String("context", cfg.ContextID),
		logger.Int("items", cfg.Items),
		logger.Int("challengers", cfg.Challengers),
	)

	for i := range cfg.Items {
		name := fmt.Sprintf("item-%03d", i+1)
		truth[name] = rng.Float64() * strengthSpread
		c := model.Candidate{
			Origin:  model.Established,
			Rating:  rating,
			Display: model.Display{Name: name, Description: "established"},
		}
		if _, err := s.AddRecord(ctx, cfg.ContextID, c); err != nil {
			return nil, fmt.Errorf("seed %s: %w", name, err)
		}
	}
	for i := range cfg.Challengers {
		name := fmt.Sprintf("challenger-%03d", i+1)
		truth[name] = rng.Float64() * strengthSpread
		d := model.Display{Name: name, Description: "challenger"}
		if _, err := s.AddChallenger(ctx, cfg.ContextID, d); err != nil {
			return nil, fmt.Errorf("seed %s: %w", name, err)
		}
	}
	return truth, nil
}

var _ Seeder = (*repository.MemoryStore)(nil)
