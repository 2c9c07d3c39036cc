// @title           hookline API
// @version         1.0
// @description     Generate cold-outreach hooks and service-fit analyses for prospect websites. Sign in through the web UI; the API uses the same session cookie.
// @BasePath        /api/v1
// @securityDefinitions.apikey SessionCookie
// @in              cookie
// @name            hookline_session
package api
