package handlers

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Mount registers the comment routes on r.
func Mount(r chi.Router, svc CommentService, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("http")

	r.Route("/v1/resources/{resource_id}/comments", func(r chi.Router) {
		r.Post("/", CreateRootComment(svc, log))
		r.Get("/", GetRootComments(svc, log))
		r.Get("/all", GetAllComments(svc, log))
	})
	r.Route("/v1/comments/{comment_id}", func(r chi.Router) {
		r.Put("/", EditComment(svc, log))
		r.Delete("/", DeleteComment(svc, log))
		r.Post("/branches", CreateBranchComment(svc, log))
		r.Get("/branches", GetBranchCommentsNext(svc, log))
		r.Get("/branches/all", GetBranchCommentsRest(svc, log))
		r.Post("/reactions", ReactToComment(svc, log))
		r.Post("/reactions/undo", UndoReaction(svc, log))
	})
}
