/*
Package parley is a pipeline engine for building conversational agents: each
user turn flows through a tree of services around a dialog actor, against a
persistent per-user context.

# Concept

Parley treats one dialog turn as a pipeline run. The pipeline is a tree of
components: plain services (preprocessing, enrichment, side effects), service
groups (sequential or concurrent), and exactly one actor that produces the
reply. Every component records its execution state in the shared context, a
failing component never takes the turn down with it, and the context is
persisted between turns through a pluggable store (in-memory, Redis). This
Hexagonal Architecture lets the same pipeline serve a terminal chat, an HTTP
API or an MCP server.

# Key Features

  - Deterministic composition: components run in list order; concurrent
    groups fan out and join before the next sibling starts.
  - Failure isolation: errors and panics mark the component FAILED and are
    logged; siblings and the turn continue.
  - Scripted dialogs: a YAML-definable graph of nodes and condition-guarded
    transitions drives the actor.
  - Pluggable edges: context stores, messengers and metrics attach through
    small interfaces.

# Usage

Build a pipeline around an actor and connect a messenger:

	package main

	import (
		"context"
		"log"

		"github.com/ketram/parley"
		"github.com/ketram/parley/pkg/script"
	)

	func main() {
		dialog := script.Script{
			"greet": {
				Response: "Hello! What can I get you?",
				Transitions: []script.Transition{
					{Dest: "order", Cond: script.Contains("coffee")},
				},
			},
			"order":    {Response: "Coming right up."},
			"confused": {Response: "Sorry, I didn't catch that."},
		}

		p, err := parley.New(script.NewActor(dialog), "greet",
			parley.WithFallbackLabel("confused"))
		if err != nil {
			log.Fatal(err)
		}

		// Reads lines from stdin, prints replies, until /quit.
		if err := p.Run(context.Background()); err != nil {
			log.Fatal(err)
		}
	}
*/
package parley
