package middlewares

const (
	CtxRequestID = "ctx.request_id"
	CtxSession   = "ctx.session"
)
