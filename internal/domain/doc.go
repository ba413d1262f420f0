// Package domain contains shared domain types used across entity sub-packages.
// Entity-specific types live in sub-packages (domain/user, domain/todo).
// This root package holds sentinel errors, typed errors, validation messages,
// and the Record/Entity types every persisted entity builds on.
package domain
