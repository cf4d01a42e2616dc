// Package api provides the chat backend REST client.
//
// Every response is wrapped in a {code, message, data} envelope. A non-success
// code surfaces as *ResultError; an HTTP status >= 400 as *APIError.
//
// Endpoints:
//   - GET  /app/message/unread
//   - GET  /app/message/chat/history?sendUserId=&receiveUserId=
//   - GET  /app/message/sessions
//   - POST /app/message/updateCurrentChatId?userId=&currentChatId=
//   - GET  /app/info
//   - GET  /app/getInfo?id=
package api
