package assetkit

import (
	"fmt"

	"github.com/meigma/assetkit/graph"
	"github.com/meigma/assetkit/internal/batch"
)

// ObjectError records the failure of fn for one object in Process.
type ObjectError struct {
	Object *graph.Object
	Err    error
}

func (e *ObjectError) Error() string {
	return fmt.Sprintf("assetkit: %s #%d: %v", e.Object.Container().Name(), e.Object.PathID, e.Err)
}

// Unwrap returns the underlying error.
func (e *ObjectError) Unwrap() error { return e.Err }

// Process runs fn for every object, serially or across the session's
// workers depending on how many objects there are and how large they are.
// A failing object never stops the others; every failure is returned.
func (s *Session) Process(objs []*graph.Object, fn func(*graph.Object) error) []*ObjectError {
	errs, stats := batch.Run(s.processor, objs, func(o *graph.Object) int64 { return o.Size }, fn)

	var out []*ObjectError
	for i, err := range errs {
		if err == nil {
			continue
		}
		obj := objs[i]
		s.log().Debug("object failed", "container", obj.Container().Name(), "path_id", obj.PathID, "error", err)
		out = append(out, &ObjectError{Object: obj, Err: err})
	}
	s.log().Debug("process complete", "processed", stats.Processed.Load(), "failed", stats.Failed.Load())
	return out
}
