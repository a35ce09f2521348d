package fabso

import "go.uber.org/zap"

// ObjectiveLogger logs every evaluation of the wrapped objective at debug
// level.
type ObjectiveLogger struct {
	Objectiver
	Log   *zap.Logger
	Count int
}

func NewObjectiveLogger(obj Objectiver, log *zap.Logger) *ObjectiveLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &ObjectiveLogger{Objectiver: obj, Log: log}
}

func (ol *ObjectiveLogger) Objective(v []float64) (float64, error) {
	val, err := ol.Objectiver.Objective(v)

	ol.Count++
	ol.Log.Debug("objective evaluated",
		zap.Int("count", ol.Count),
		zap.Float64s("pos", v),
		zap.Float64("val", val),
		zap.Error(err),
	)
	return val, err
}
