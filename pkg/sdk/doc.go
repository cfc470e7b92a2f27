// Package sdk is a Go client for the vecquiz HTTP API.
//
//	c, _ := sdk.New("http://localhost:8080", sdk.WithAPIKey(os.Getenv("VECQUIZ_API_KEY")))
//	game, _ := c.StartGame(ctx, "alice")
//	game, _ = c.NextRound(ctx, game.ID)
//	_, _ = c.Toggle(ctx, game.ID, 3)
//	game, _ = c.Submit(ctx, game.ID)
//	fmt.Println(game.Round.Result.Correct, game.Score)
//
// API errors unwrap to the same sentinels the server uses, so
// errors.Is(err, sdk.ErrGameNotFound) works across the wire.
package sdk
