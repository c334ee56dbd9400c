package server

// snapshot is the catch-up payload pushed to a freshly attached connection:
// enough of the aggregate for a client to render the current phase without
// replaying the event history. Correct answers are never included.
func snapshot(game *Game) map[string]any {
	snap := map[string]any{
		"room_id":         game.ID,
		"title":           game.Title,
		"mode":            game.Mode.String(),
		"phase":           game.Phase,
		"locked":          game.RoomLocked,
		"paused":          game.Paused,
		"panic_available": game.PanicAvailable,
		"panic_started":   game.PanicStarted,
		"question_index":  game.CurrentIndex,
		"question_total":  len(game.Questions),
		"remaining":       game.timer.remainingSeconds(),
		"roster":          rosterPayload(game),
	}
	if question := game.currentQuestion(); question != nil && game.Phase != phaseLobby {
		snap["question"] = questionPayload(game, question)
	}
	if game.Phase == phaseFinalResults {
		snap["final"] = finalStatistics(game)
	}
	return snap
}
