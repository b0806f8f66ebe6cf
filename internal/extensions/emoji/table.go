package emoji

// Emoji is one shortcode and its character.
type Emoji struct {
	Code string
	Char string
}

var table = []Emoji{
	{"+1", "👍"}, {"-1", "👎"}, {"100", "💯"}, {"angry", "😠"}, {"bug", "🐛"},
	{"check", "✔️"}, {"clap", "👏"}, {"coffee", "☕"}, {"confused", "😕"},
	{"cry", "😢"}, {"eyes", "👀"}, {"fire", "🔥"}, {"gopher", "🐹"},
	{"grin", "😁"}, {"heart", "❤️"}, {"heart_eyes", "😍"}, {"hourglass", "⌛"},
	{"joy", "😂"}, {"laughing", "😆"}, {"memo", "📝"}, {"ok_hand", "👌"},
	{"party", "🥳"}, {"pencil", "✏️"}, {"pray", "🙏"}, {"rocket", "🚀"},
	{"sad", "😞"}, {"scream", "😱"}, {"smile", "😄"}, {"smiley", "😃"},
	{"smirk", "😏"}, {"sparkles", "✨"}, {"star", "⭐"}, {"sunglasses", "😎"},
	{"tada", "🎉"}, {"thinking", "🤔"}, {"thumbsdown", "👎"}, {"thumbsup", "👍"},
	{"warning", "⚠️"}, {"wave", "👋"}, {"wink", "😉"}, {"x", "❌"}, {"zap", "⚡"},
}

var byCode = func() map[string]Emoji {
	m := make(map[string]Emoji, len(table))
	for _, e := range table {
		m[e.Code] = e
	}
	return m
}()

// Lookup returns the emoji for a shortcode.
func Lookup(code string) (Emoji, bool) {
	e, ok := byCode[code]
	return e, ok
}
