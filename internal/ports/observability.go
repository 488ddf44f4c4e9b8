package ports

type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogWarn(msg string, err error, fields ...Field)
	LogError(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)
	ObserveSize(name string, bytes float64)

	SetGauge(name string, v float64)
}

type Field struct {
	Key   string
	Value any
}
