package floorbus

// Default topic names used by the field devices on the floor.
const (
	DefaultOperatorEventsTopic   = "data/manpower"
	DefaultProductEventsTopic    = "data/product"
	DefaultRawTagTelemetryTopic  = "data/machine"
	DefaultBatchTelemetryTopic   = "machine_01/data"
	DefaultOperatorFeedbackTopic = "data/feedback/manpower"
	DefaultProductFeedbackTopic  = "data/feedback/product"
	DefaultMachineCommandsTopic  = "machine_01/cmd"
)

// Topics names every bus channel the floor services read or write.
type Topics struct {
	OperatorEvents   string `yaml:"operator_events"`
	ProductEvents    string `yaml:"product_events"`
	RawTagTelemetry  string `yaml:"raw_tag_telemetry"`
	BatchTelemetry   string `yaml:"batch_telemetry"`
	OperatorFeedback string `yaml:"operator_feedback"`
	ProductFeedback  string `yaml:"product_feedback"`
	MachineCommands  string `yaml:"machine_commands"`
}

// DefaultTopics returns the topic table used by the field devices.
func DefaultTopics() Topics {
	return Topics{
		OperatorEvents:   DefaultOperatorEventsTopic,
		ProductEvents:    DefaultProductEventsTopic,
		RawTagTelemetry:  DefaultRawTagTelemetryTopic,
		BatchTelemetry:   DefaultBatchTelemetryTopic,
		OperatorFeedback: DefaultOperatorFeedbackTopic,
		ProductFeedback:  DefaultProductFeedbackTopic,
		MachineCommands:  DefaultMachineCommandsTopic,
	}
}

// WithDefaults returns a copy of t where every empty topic is replaced by its default.
func (t Topics) WithDefaults() Topics {
	d := DefaultTopics()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&t.OperatorEvents, d.OperatorEvents)
	fill(&t.ProductEvents, d.ProductEvents)
	fill(&t.RawTagTelemetry, d.RawTagTelemetry)
	fill(&t.BatchTelemetry, d.BatchTelemetry)
	fill(&t.OperatorFeedback, d.OperatorFeedback)
	fill(&t.ProductFeedback, d.ProductFeedback)
	fill(&t.MachineCommands, d.MachineCommands)
	return t
}

// CoordinatorTopics returns the inbound topics consumed by the coordinator.
func (t Topics) CoordinatorTopics() []string {
	return []string{t.OperatorEvents, t.ProductEvents, t.RawTagTelemetry}
}
