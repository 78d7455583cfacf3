// File: core/callback/dispatch.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Handle-path and direct-path dispatch on top of a Table.

package callback

import (
	"reflect"
	"regexp"
	"runtime"
	"strings"

	"github.com/momentics/hioload-slice/api"
)

// Task is one unit of a task-array dispatch.
type Task interface {
	Execute() error
}

// TaskFunc adapts a plain function to Task.
type TaskFunc func() error

// Execute calls f.
func (f TaskFunc) Execute() error { return f() }

var defaultTable Table

// Handles returns the process-wide table used by Dispatch and DispatchTasks.
func Handles() *Table { return &defaultTable }

// Dispatch runs work for every index in [0, count) on b through a handle in
// the default table. See Table.Dispatch.
func Dispatch(b api.Backend, count int, work api.WorkFunc) error {
	return defaultTable.Dispatch(b, count, work)
}

// Dispatch acquires a handle for work, lets b resolve it for every index and
// releases it once ExecuteBatch returned, whether or not it failed. work may
// capture state. The batch always waits: a handle never outlives the call.
func (t *Table) Dispatch(b api.Backend, count int, work api.WorkFunc) (err error) {
	if count < 0 {
		return api.Errorf(api.ErrCodeInvalidSize, "callback: negative item count %d", count)
	}
	tok, err := t.Acquire(work)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := t.Release(tok); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return b.ExecuteBatch(count, t.resolver(tok), true)
}

// resolver is what crosses into the backend: it carries only the token.
func (t *Table) resolver(tok Token) api.WorkFunc {
	return func(index int) error {
		work, err := t.Resolve(tok)
		if err != nil {
			return err
		}
		return work(index)
	}
}

// DispatchTasks runs tasks[i].Execute for every i through a handle.
func DispatchTasks(b api.Backend, tasks []Task) error {
	return defaultTable.DispatchTasks(b, tasks)
}

// DispatchTasks runs tasks[i].Execute for every i through a handle.
func (t *Table) DispatchTasks(b api.Backend, tasks []Task) error {
	for i, task := range tasks {
		if task == nil {
			return api.Errorf(api.ErrCodeInvalidCallbackShape, "callback: nil task at %d", i)
		}
	}
	return t.Dispatch(b, len(tasks), func(i int) error { return tasks[i].Execute() })
}

// DispatchDirect hands work to b without a handle. work must be a named
// package-level function; closures and bound methods are rejected with
// ErrInvalidCallbackShape before anything is dispatched.
func DispatchDirect(b api.Backend, count int, work api.WorkFunc) error {
	if err := CheckShape(work); err != nil {
		return err
	}
	return b.ExecuteBatch(count, work, true)
}

var closureName = regexp.MustCompile(`\.func\d+(\.\d+)*$`)

// CheckShape reports whether fn is free of captured state, as far as the
// runtime can tell: it must be a top-level function, not a function literal,
// a method value or a function synthesized by package reflect.
func CheckShape(fn any) error {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return api.Errorf(api.ErrCodeInvalidCallbackShape, "callback: %T is not a function", fn)
	}
	name := FuncName(fn)
	switch {
	case name == "":
		return api.NewError(api.ErrCodeInvalidCallbackShape, "callback: function has no symbol")
	case closureName.MatchString(name):
		return api.Errorf(api.ErrCodeInvalidCallbackShape, "callback: %s is a function literal", name).
			WithContext("func", name)
	case strings.HasSuffix(name, "-fm"):
		return api.Errorf(api.ErrCodeInvalidCallbackShape, "callback: %s is a bound method value", name).
			WithContext("func", name)
	case strings.HasPrefix(name, "reflect."):
		// makeFuncStub, methodValueCall: the real target lives in the closure.
		return api.Errorf(api.ErrCodeInvalidCallbackShape, "callback: %s is built by reflect", name).
			WithContext("func", name)
	}
	return nil
}

// FuncName returns the runtime symbol name of fn, or "" when fn is not a function.
func FuncName(fn any) string {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	return f.Name()
}
