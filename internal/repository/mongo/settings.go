package mongo

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mkhodaee16/ecb-bot/internal/repository/mongo/structs"
	"github.com/mkhodaee16/ecb-bot/models"
)

type SettingsRepository struct {
	conn       *mongo.Client
	collection *mongo.Collection
}

func NewSettingsRepository(conn *mongo.Client, dbName string) *SettingsRepository {
	collection := conn.Database(dbName).Collection("symbols")

	return &SettingsRepository{conn: conn, collection: collection}
}

// SetDefault inserts every default whose symbol has no document yet.
// Existing documents are left untouched.
func (r *SettingsRepository) SetDefault(ctx context.Context, defaults []structs.Settings) error {
	for _, s := range defaults {
		s.Symbol = strings.ToUpper(s.Symbol)
		if s.Status == "" {
			s.Status = structs.Enabled
		}

		_, err := r.collection.UpdateOne(ctx,
			bson.D{{Key: "symbol", Value: s.Symbol}},
			bson.D{{Key: "$setOnInsert", Value: bson.D{
				{Key: "symbol", Value: s.Symbol},
				{Key: "trail_distance", Value: s.TrailDistance},
				{Key: "profit_multiplier", Value: s.ProfitMultiplier},
				{Key: "status", Value: s.Status},
			}}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return errors.Wrapf(err, "set default %s", s.Symbol)
		}
	}

	return nil
}

func (r *SettingsRepository) Load(ctx context.Context, symbol string) (*structs.Settings, error) {
	var result structs.Settings

	err := r.collection.FindOne(ctx, bson.D{{Key: "symbol", Value: strings.ToUpper(symbol)}}).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Wrapf(models.ErrNotFound, "settings %s", symbol)
	}
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *SettingsRepository) List(ctx context.Context) ([]structs.Settings, error) {
	cur, err := r.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "symbol", Value: 1}}))
	if err != nil {
		return nil, err
	}

	var out []structs.Settings
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *SettingsRepository) Save(ctx context.Context, settings *structs.Settings) error {
	settings.Symbol = strings.ToUpper(settings.Symbol)

	_, err := r.collection.UpdateOne(ctx,
		bson.D{{Key: "symbol", Value: settings.Symbol}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "trail_distance", Value: settings.TrailDistance},
			{Key: "profit_multiplier", Value: settings.ProfitMultiplier},
			{Key: "status", Value: settings.Status},
		}}},
		options.Update().SetUpsert(true),
	)

	return err
}

func (r *SettingsRepository) UpdateStatus(ctx context.Context, symbol string, status structs.SymbolStatus) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.D{{Key: "symbol", Value: strings.ToUpper(symbol)}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: status}}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(models.ErrNotFound, "settings %s", symbol)
	}

	return nil
}
