package logger

import "go.uber.org/zap"

var Log *zap.Logger

func Init() {
	Log = zap.Must(zap.NewProduction())
}

// InitSilent swaps in a no-op logger; used by tests.
func InitSilent() {
	Log = zap.NewNop()
}

func Sugar() *zap.SugaredLogger {
	return Log.Sugar()
}
