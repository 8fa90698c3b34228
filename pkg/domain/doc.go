// Package domain contains the data model shared by the pipeline engine and
// its adapters: the dialog Context with its turn histories, the Message
// exchanged with users, and the per-turn component execution states.
package domain
