package game

// mergeSettings fills zero fields of requested from the type's
// defaults.
func mergeSettings(requested, defaults Settings) Settings {
	out := requested
	if out.MinPlayers <= 0 {
		out.MinPlayers = defaults.MinPlayers
	}
	if out.MaxPlayers <= 0 {
		out.MaxPlayers = defaults.MaxPlayers
	}
	if out.MaxPlayers < out.MinPlayers {
		out.MaxPlayers = out.MinPlayers
	}
	if out.TurnTimeout <= 0 {
		out.TurnTimeout = defaults.TurnTimeout
	}
	if out.MaxWrongGuesses <= 0 {
		out.MaxWrongGuesses = defaults.MaxWrongGuesses
	}
	if len(out.Questions) == 0 {
		out.Questions = defaults.Questions
	}
	return out
}
