package api

import (
	"github.com/labstack/echo"
)

// EchoServer define all API expose
type EchoServer interface {
	// General
	Ping(c echo.Context) error
	ServerStatus(c echo.Context) error
	UpdateServerStatus(c echo.Context) error

	// Proposals
	Proposal(c echo.Context) error
	ProposalVotes(c echo.Context) error
	ProposalVoteBySlot(c echo.Context) error
	ReconcileReport(c echo.Context) error
	ReconcileProposal(c echo.Context) error

	// Votes
	VoteByBalance(c echo.Context) error
}

type restDefinition struct {
	method      string
	path        string
	fn          func(c echo.Context) error
	middlewares []echo.MiddlewareFunc
}

func bind(gr *echo.Group, srv EchoServer) {
	apis := []restDefinition{
		{
			method:      echo.GET,
			path:        "/ping",
			fn:          srv.Ping,
			middlewares: nil,
		},
		{
			method:      echo.GET,
			path:        "/status",
			fn:          srv.ServerStatus,
			middlewares: nil,
		},
		{
			method:      echo.PUT,
			path:        "/status",
			fn:          srv.UpdateServerStatus,
			middlewares: nil,
		},
		{
			method:      echo.GET,
			path:        "/proposals/:id",
			fn:          srv.Proposal,
			middlewares: nil,
		},
		{
			method:      echo.GET,
			path:        "/proposals/:id/votes",
			fn:          srv.ProposalVotes,
			middlewares: nil,
		},
		{
			method:      echo.GET,
			path:        "/proposals/:id/votes/slot",
			fn:          srv.ProposalVoteBySlot,
			middlewares: nil,
		},
		{
			method:      echo.GET,
			path:        "/proposals/:id/report",
			fn:          srv.ReconcileReport,
			middlewares: nil,
		},
		{
			method:      echo.POST,
			path:        "/proposals/:id/reconcile",
			fn:          srv.ReconcileProposal,
			middlewares: nil,
		},
		{
			method:      echo.GET,
			path:        "/votes/balance/:balanceID",
			fn:          srv.VoteByBalance,
			middlewares: nil,
		},
	}
	for _, api := range apis {
		gr.Add(api.method, api.path, api.fn, api.middlewares...)
	}
}
