package state

// Status is the loading and error summary every running component reports.
type Status struct {
	Loading bool
	Err     *ErrorInfo
}
