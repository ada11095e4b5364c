// Package ui renders the portwatch dashboard with Bubble Tea.
//
// The model never talks to the network. It reads snapshots of the running
// session's collections and vessel registry on a fixed tick and renders them
// as tabbed tables. Retrying a failed collection restarts that component in
// place; retrying the vessel tab triggers an immediate poll.
package ui
