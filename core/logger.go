package core

// Logger is any leveled logger service.
// Implementations may inspect args for well-known types (e.g. a user.User
// to attribute an error to the acting account).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
