package structs

import "go.mongodb.org/mongo-driver/bson/primitive"

type SymbolStatus string

const (
	Enabled  SymbolStatus = "enabled"
	Disabled SymbolStatus = "disabled"
)

func (s SymbolStatus) ToString() string {
	return string(s)
}

// Settings are per-symbol overrides of the reconciler tunables. A zero value
// falls back to the process wide default.
type Settings struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"-" yaml:"-"`
	Symbol           string             `bson:"symbol" json:"symbol" yaml:"symbol"`
	TrailDistance    float64            `bson:"trail_distance" json:"trail_distance" yaml:"trail_distance"`
	ProfitMultiplier float64            `bson:"profit_multiplier" json:"profit_multiplier" yaml:"profit_multiplier"`
	Status           SymbolStatus       `bson:"status" json:"status" yaml:"status"`
}

func (s *Settings) Enabled() bool {
	return s.Status != Disabled
}
