// Command mdt runs the police mobile data terminal backend.
//
// @title                      MDT Backend API
// @version                    1.0
// @description                Police mobile data terminal for role-play servers.
// @BasePath                   /api/v1
// @securityDefinitions.apikey SessionAuth
// @in                         header
// @name                       Authorization
// @description                "Bearer <token>" or the mdt_session cookie.
// @securityDefinitions.apikey BotAuth
// @in                         header
// @name                       Authorization
// @description                "Bot <token>".
package main

import "os"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
