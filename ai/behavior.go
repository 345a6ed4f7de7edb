package ai

// Status is the outcome of running a behaviour for one tick.
type Status int

const (
	Success Status = iota
	Failure
	Running
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Behavior is a behaviour tree node.
type Behavior interface {
	Run() Status
}

// BehaviorFunc adapts a function to a Behavior leaf.
type BehaviorFunc func() Status

func (f BehaviorFunc) Run() Status {
	if f == nil {
		return Failure
	}
	return f()
}

// Condition adapts a predicate to a leaf that succeeds when it holds.
func Condition(pred func() bool) Behavior {
	return BehaviorFunc(func() Status {
		if pred != nil && pred() {
			return Success
		}
		return Failure
	})
}

// Composite holds an ordered list of children.
type Composite struct {
	children []Behavior
}

func (c *Composite) Add(b Behavior) {
	if b == nil {
		return
	}
	c.children = append(c.children, b)
}

// RemoveAt drops the child at index i. Children are addressed by position
// because BehaviorFunc values are not comparable.
func (c *Composite) RemoveAt(i int) bool {
	if i < 0 || i >= len(c.children) {
		return false
	}
	c.children = append(c.children[:i], c.children[i+1:]...)
	return true
}

func (c *Composite) Set(children ...Behavior) {
	c.children = c.children[:0]
	for _, b := range children {
		c.Add(b)
	}
}

func (c *Composite) Children() []Behavior {
	out := make([]Behavior, len(c.children))
	copy(out, c.children)
	return out
}

// Sequence runs children in order until one does not succeed.
type Sequence struct {
	Composite
}

func NewSequence(children ...Behavior) *Sequence {
	s := &Sequence{}
	s.Set(children...)
	return s
}

func (s *Sequence) Run() Status {
	for _, child := range s.children {
		if st := child.Run(); st != Success {
			return st
		}
	}
	return Success
}

// Selector runs children in order until one does not fail.
type Selector struct {
	Composite
}

func NewSelector(children ...Behavior) *Selector {
	s := &Selector{}
	s.Set(children...)
	return s
}

func (s *Selector) Run() Status {
	for _, child := range s.children {
		if st := child.Run(); st != Failure {
			return st
		}
	}
	return Failure
}

// Inverter swaps Success and Failure; Running passes through.
type Inverter struct {
	Child Behavior
}

func (i Inverter) Run() Status {
	if i.Child == nil {
		return Failure
	}
	switch st := i.Child.Run(); st {
	case Success:
		return Failure
	case Failure:
		return Success
	default:
		return st
	}
}

// LogBehavior writes its message at info level and succeeds.
type LogBehavior struct {
	Message string
}

func (l LogBehavior) Run() Status {
	logger.Info(l.Message)
	return Success
}
