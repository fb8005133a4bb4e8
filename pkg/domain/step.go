package domain

// Step is one structured unit of work in a plan.
// Steps carry no data dependencies; later steps may rely on files written by earlier ones.
type Step struct {
	Tool    string         `json:"tool" yaml:"tool" mapstructure:"tool"`
	Subject string         `json:"subject,omitempty" yaml:"subject,omitempty" mapstructure:"subject"`
	Action  string         `json:"action,omitempty" yaml:"action,omitempty" mapstructure:"action"`
	Task    string         `json:"task,omitempty" yaml:"task,omitempty" mapstructure:"task"`
	Args    map[string]any `json:"args,omitempty" yaml:"args,omitempty" mapstructure:"args"`
}

// Tag returns the action of the step, falling back to the legacy "task" field.
func (s Step) Tag() string {
	if s.Action != "" {
		return s.Action
	}
	return s.Task
}

// CloneArgs returns a shallow copy of the step arguments so the engine can patch them
// without mutating the caller's plan.
func (s Step) CloneArgs() map[string]any {
	args := make(map[string]any, len(s.Args))
	for k, v := range s.Args {
		args[k] = v
	}
	return args
}

// Plan is an ordered sequence of steps.
type Plan struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty" mapstructure:"id"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Steps       []Step `json:"steps" yaml:"steps" mapstructure:"steps"`
}
