package protocol

import "strings"

// AdminRequest is the normalized form of the admin command body.
type AdminRequest struct {
	Password string
	Action   string
	Args     string
}

// ParseAdminBody normalizes the two equivalent admin wire syntaxes,
//
//	password|ACTION|args...
//	password ACTION args...
//
// into (password, action, args). Both forms are accepted on purpose: the
// admin console sends the pipe form while hand-typed /admin commands use
// spaces, and the server has always tolerated either. Mixed forms resolve
// the way the original splitter did: a space inside the second pipe field
// wins over any later pipe fields.
//
// ok is false only when no password can be extracted; a missing action is
// reported by the caller as "Admin: no action", not here.
func ParseAdminBody(body string) (AdminRequest, bool) {
	if body == "" {
		return AdminRequest{}, false
	}

	var password, actionWithArgs string
	fields := strings.Split(body, "|")
	if len(fields) == 1 {
		password, actionWithArgs, _ = strings.Cut(fields[0], " ")
	} else {
		password = fields[0]
		actionWithArgs = fields[1]
	}
	if password == "" {
		return AdminRequest{}, false
	}

	action, args, _ := strings.Cut(actionWithArgs, " ")
	if args == "" && len(fields) > 2 {
		args = strings.Join(fields[2:], "|")
	}

	return AdminRequest{Password: password, Action: action, Args: args}, true
}
