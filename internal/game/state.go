package game

import "fmt"

// RoundState is the lifecycle of a single drop.
type RoundState int

const (
	// RoundLaunching: the ball waits at the top, held inside the drop window.
	RoundLaunching RoundState = iota
	// RoundFalling: balls are live and slot detection runs every tick.
	RoundFalling
	// RoundLanded: the multiplier has been read and reported. Terminal until restart.
	RoundLanded
)

func (s RoundState) String() string {
	switch s {
	case RoundLaunching:
		return "LAUNCHING"
	case RoundFalling:
		return "FALLING"
	case RoundLanded:
		return "LANDED"
	default:
		return "UNKNOWN"
	}
}

func (s RoundState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *RoundState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "LAUNCHING":
		*s = RoundLaunching
	case "FALLING":
		*s = RoundFalling
	case "LANDED":
		*s = RoundLanded
	default:
		return fmt.Errorf("unknown round state %q", b)
	}
	return nil
}

// SessionStatus represents the current state of a player session
type SessionStatus string

const (
	StatusActive  SessionStatus = "ACTIVE"
	StatusClosed  SessionStatus = "CLOSED"
	StatusExpired SessionStatus = "EXPIRED"
)
