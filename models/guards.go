// models/guards.go
package models

import "fmt"

// GuardResult is the outcome of a transition check. Guards never touch storage;
// callers load the state inside their transaction and ask before writing.
type GuardResult struct {
	Allowed bool
	Reason  string
}

func allow() GuardResult { return GuardResult{Allowed: true} }

func deny(format string, args ...any) GuardResult {
	return GuardResult{Reason: fmt.Sprintf(format, args...)}
}

// CanIssue: available --issue--> issued. hasOpen reports an open IssueRecord for the tool.
func CanIssue(t Tool, hasOpen bool) GuardResult {
	if t.Status != ToolAvailable {
		return deny("tool %d is %s", t.ID, t.Status)
	}
	if hasOpen {
		return deny("tool %d already has an open issue record", t.ID)
	}
	return allow()
}

// CanRequest allows a request for any tool that is not currently issued.
func CanRequest(t Tool) GuardResult {
	if t.Status == ToolIssued {
		return deny("tool %d is already issued", t.ID)
	}
	return allow()
}

// CanDecide allows approve/reject only out of pending.
func CanDecide(r IssueRequest) GuardResult {
	if r.Status != RequestPending {
		return deny("request %d is %s", r.ID, r.Status)
	}
	return allow()
}

// CanReturn: issued --return--> available, once per record.
func CanReturn(r IssueRecord) GuardResult {
	if !r.Open() {
		return deny("issue record %d is already closed", r.ID)
	}
	return allow()
}
