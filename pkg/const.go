package pkg

// Wire tags for the message kinds. A conforming peer must use the same
// spelling.
const (
	Connect    = "Connect"
	StartGame  = "StartGame"
	Shot       = "Shot"
	ShotResult = "ShotResult"
	GameOver   = "GameOver"
	Chat       = "Chat"
)

// Payload keys.
const (
	KeyPlayerName = "playerName"
	KeyYouGoFirst = "youGoFirst"
	KeyX          = "x"
	KeyY          = "y"
	KeyResult     = "result"
	KeyAllSunk    = "allSunk"
	KeyYouWon     = "youWon"
	KeyText       = "text"
)

const (
	DefaultPort   = 12345
	BoardSize     = 10
	MaxLogEntries = 1000
)
