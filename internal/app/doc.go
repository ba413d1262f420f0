// Package app provides the application services. Each service wraps an
// action.Service for one entity type and adds the use cases built on top of
// the standard actions; SignupService composes several services inside a
// single service context it owns.
package app
