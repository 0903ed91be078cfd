package main

import (
	"testing"

	"c4bridge/types"
)

func TestSideFromFlag(t *testing.T) {
	tests := map[string]types.Player{
		"":       types.PlayerOne,
		"red":    types.PlayerOne,
		"y":      types.PlayerTwo,
		"yellow": types.PlayerTwo,
	}
	for in, want := range tests {
		got, err := sideFromFlag(in)
		if err != nil {
			t.Errorf("sideFromFlag(%q): %s", in, err)
		}
		if got != want {
			t.Errorf("sideFromFlag(%q) = %d, want %d", in, got, want)
		}
	}
	if _, err := sideFromFlag("blue"); err == nil {
		t.Error("expected an error for an unknown side")
	}
}
