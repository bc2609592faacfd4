// Package auth is the session based authentication and authorization
// subsystem of a resource serving application, together with the central
// error classification stage every failure path feeds into.
//
// It covers credential verification and hashing, signed session token
// issuance and verification, time windowed password reset tokens, implicit
// revocation of tokens issued before a password change, role based access
// gating, and translation of internal failures into a consistent external
// error contract with environment dependent verbosity.
//
// Mount the credential flows and guards on a fiber application and install
// ErrorHandler as the app level error handler:
//
//	cfg := auth.NewOptionsFromEnv()
//	tokens := auth.NewTokenService([]byte(cfg.GetSigningKey()), auth.TokenDuration(cfg), logger)
//	users := auth.NewUsersRepository(db)
//	guard := auth.NewGuard(tokens, users, cfg)
//
//	app := fiber.New(fiber.Config{ErrorHandler: auth.ErrorHandler(cfg, logger)})
//	controller := auth.NewAuthController(
//		auth.WithUsers(users),
//		auth.WithTokens(tokens),
//		auth.WithConfig(cfg),
//	)
//	controller.RegisterRoutes(app.Group("/api/v1/users"), guard)
package auth
