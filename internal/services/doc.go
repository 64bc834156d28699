// Package services wires the weekpulse stores and services from
// configuration and exposes them through a Registry.
//
// Use Build to construct everything from a config.Config, or NewRegistry to
// assemble a registry from instances you already hold (tests do this).
package services
