// Package tui draws the save dialogs in the terminal.
//
// A single dirty saveable gets a Save / Don't Save / Cancel confirmation; several
// get a checklist with every item ticked. When every saveable is still open in
// another part, the dialog also offers "don't ask again". Cancel is only
// offered when the close can be aborted.
//
// Prompter runs one bubbletea program per question. While it runs, log output
// is held back so it does not tear the dialog.
package tui
