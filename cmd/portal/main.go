// @title           HomeOwner Portal API
// @version         1.0
// @description     User administration API of the HomeOwner portal.
// @BasePath        /
// @securityDefinitions.apikey  SessionCookie
// @in                          cookie
// @name                        portal_session
package main

import "github.com/homeowner/portal/cmd/portal/cmd"

func main() {
	cmd.Execute()
}
