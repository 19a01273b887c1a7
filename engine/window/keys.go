package window

// Key is a keyboard key. Values match GLFW key codes, which use ASCII for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
type Key uint32

const (
	KeySpace  Key = 32
	Key1      Key = 49
	Key2      Key = 50
	Key3      Key = 51
	KeyO      Key = 79
	KeyP      Key = 80
	KeyR      Key = 82
	KeyT      Key = 84
	KeyEscape Key = 256
	KeyRight  Key = 262
	KeyLeft   Key = 263
	KeyDown   Key = 264
	KeyUp     Key = 265
)
