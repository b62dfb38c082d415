package botdispatch

import (
	"fmt"
	"reflect"
)

type resultKind int

const (
	resultOk resultKind = iota
	resultFault
	resultNext
	resultNextAs
)

// Result tells the pool what to do with the rest of an update's matched
// handlers once a handler returns.
type Result struct {
	kind   resultKind
	err    error
	target func(*MatchedHandler) bool
	label  string
}

// Ok reports success and stops the chain for this update.
func Ok() Result { return Result{kind: resultOk} }

// Fault reports failure and stops the chain for this update.
func Fault(err error) Result { return Result{kind: resultFault, err: err} }

// Next reports success and continues with the next matched handler.
func Next() Result { return Result{kind: resultNext} }

// NextAs reports success and continues with the next matched handler whose
// concrete type is T, discarding the ones in between.
func NextAs[T Handler]() Result {
	t := reflect.TypeFor[T]()
	return Result{
		kind:  resultNextAs,
		label: t.String(),
		target: func(mh *MatchedHandler) bool {
			return reflect.TypeOf(mh.Handler) == t
		},
	}
}

// NextNamed is NextAs keyed by descriptor name, for handlers that share a Go
// type such as HandlerFunc.
func NextNamed(name string) Result {
	return Result{
		kind:  resultNextAs,
		label: name,
		target: func(mh *MatchedHandler) bool {
			return mh.Descriptor.Name() == name
		},
	}
}

// Err returns the error carried by a Fault.
func (r Result) Err() error { return r.err }

// Failed reports whether r is a Fault.
func (r Result) Failed() bool { return r.kind == resultFault }

// Continues reports whether the chain goes on after r.
func (r Result) Continues() bool { return r.kind == resultNext || r.kind == resultNextAs }

func (r Result) String() string {
	switch r.kind {
	case resultOk:
		return "ok"
	case resultFault:
		return fmt.Sprintf("fault(%v)", r.err)
	case resultNext:
		return "next"
	case resultNextAs:
		return "next(" + r.label + ")"
	}
	return "unknown"
}
