package main

import (
	"context"
	"testing"
)

func TestRunExplain(t *testing.T) {
	explainFlags.context = contextFlags{}
	explainCmd.SetContext(context.Background())

	err := runExplain(explainCmd, []string{"1500", "mcg", "mg"})
	if err != nil {
		t.Errorf("runExplain() returned error: %v", err)
	}
}

func TestRunExplainWithConcentration(t *testing.T) {
	explainFlags.context = contextFlags{}
	explainFlags.context.concentration = "250 mg/5 mL"
	explainCmd.SetContext(context.Background())

	err := runExplain(explainCmd, []string{"500", "mg", "mL"})
	if err != nil {
		t.Errorf("runExplain() with --concentration returned error: %v", err)
	}
}

func TestRunExplainUnknownUnit(t *testing.T) {
	explainFlags.context = contextFlags{}
	explainCmd.SetContext(context.Background())

	err := runExplain(explainCmd, []string{"1", "furlong", "mg"})
	if err == nil {
		t.Error("runExplain() with an unknown unit should return error")
	}
}
