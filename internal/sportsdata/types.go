package sportsdata

import "encoding/json"

// LeaguesResult es la lista de ligas recortada a lo que consume la app.
type LeaguesResult struct {
	Get        string          `json:"get"`
	Parameters json.RawMessage `json:"parameters"`
	Errors     json.RawMessage `json:"errors"`
	Results    int             `json:"results"`
	Paging     json.RawMessage `json:"paging"`
	Leagues    []LeagueItem    `json:"leagues"`
}

type LeagueItem struct {
	League json.RawMessage `json:"league"`
}

type TeamsResult struct {
	Results int    `json:"results"`
	Teams   []Team `json:"teams"`
}

type Team struct {
	TeamID  int    `json:"team_id"`
	Name    string `json:"name"`
	Code    string `json:"code"`
	Logo    string `json:"logo"`
	Country string `json:"country"`
}

type PlayersResult struct {
	Get        string          `json:"get"`
	Parameters json.RawMessage `json:"parameters"`
	Errors     json.RawMessage `json:"errors"`
	Results    int             `json:"results"`
	Paging     json.RawMessage `json:"paging"`
	Players    []Player        `json:"players"`
}

type Player struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	Age         int    `json:"age"`
	Nationality string `json:"nationality"`
	Photo       string `json:"photo"`
}

// Formas de respuesta del proveedor (v3 envuelve en "response", v2 en "api").

type v3Envelope[T any] struct {
	Get        string          `json:"get"`
	Parameters json.RawMessage `json:"parameters"`
	Errors     json.RawMessage `json:"errors"`
	Results    int             `json:"results"`
	Paging     json.RawMessage `json:"paging"`
	Response   []T             `json:"response"`
}

type v3League struct {
	League json.RawMessage `json:"league"`
}

type v3Player struct {
	Player Player `json:"player"`
}

type v2TeamsEnvelope struct {
	API struct {
		Results int    `json:"results"`
		Teams   []Team `json:"teams"`
	} `json:"api"`
}
