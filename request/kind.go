package request

import (
	"github.com/AiXpand/tsclient-sub000/message"
)

// Kind selects the completion policy of a request
type Kind int

const (
	// KindSimple fails fast on the first failure and resolves once every target succeeded
	KindSimple Kind = iota + 1
	// KindAccumulate waits for every target and then decides
	KindAccumulate
	// KindArchive decides on the pipeline archive code alone
	KindArchive
)

// String returns the metric label of the kind
func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindAccumulate:
		return "accumulate"
	case KindArchive:
		return "archive"
	default:
		return "unknown"
	}
}

var actionKinds = map[message.Action]Kind{
	message.ActionUpdateConfig:        KindSimple,
	message.ActionPipelineCommand:     KindSimple,
	message.ActionArchiveConfig:       KindArchive,
	message.ActionUpdateInstance:      KindAccumulate,
	message.ActionBatchUpdateInstance: KindAccumulate,
}

// KindFor returns the kind correlating action. Engine commands have none.
func KindFor(action message.Action) (Kind, bool) {
	k, ok := actionKinds[action]
	return k, ok
}

// TargetStatus is the tri-state of a watched path
type TargetStatus int

const (
	StatusPending TargetStatus = iota
	StatusSuccess
	StatusFailure
)

// String implements fmt.Stringer
func (s TargetStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	default:
		return "pending"
	}
}

// Target is one watched path of a request
type Target struct {
	Path   message.Path
	Status TargetStatus
	Reason string
}

type outcome int

const (
	outcomeOpen outcome = iota
	outcomeResolve
	outcomeReject
)

// policy applies one notification to its target and reports whether the request settles
type policy func(r *Request, t *Target, n *message.Notification) outcome

var policies = map[Kind]policy{
	KindSimple:     simplePolicy,
	KindAccumulate: accumulatePolicy,
	KindArchive:    archivePolicy,
}

func simplePolicy(r *Request, t *Target, n *message.Notification) outcome {
	switch {
	case n.IsException() || n.Code.IsFailure():
		t.Status = StatusFailure
		t.Reason = reason(n)
		return outcomeReject
	case n.Code.IsSuccess():
		t.Status = StatusSuccess
		if r.CanResolve() {
			return outcomeResolve
		}
	}
	return outcomeOpen
}

func accumulatePolicy(r *Request, t *Target, n *message.Notification) outcome {
	switch {
	case n.IsException() || n.Code.IsFailure():
		t.Status = StatusFailure
		t.Reason = reason(n)
	case n.Code.IsSuccess():
		t.Status = StatusSuccess
	}
	return r.decide()
}

func archivePolicy(r *Request, t *Target, n *message.Notification) outcome {
	switch {
	case n.IsException() || n.Code == message.PipelineArchiveFailed:
		t.Status = StatusFailure
		t.Reason = reason(n)
		return outcomeReject
	case n.Code == message.PipelineArchiveOK:
		t.Status = StatusSuccess
		if r.CanResolve() {
			return outcomeResolve
		}
	}
	return outcomeOpen
}

func reason(n *message.Notification) string {
	if n.Message != "" {
		return n.Message
	}
	if !n.Code.IsZero() {
		return n.Code.String()
	}
	return string(n.NotificationType)
}
