package handler

type claimRequest struct {
	Skill string `json:"skill"`
}
