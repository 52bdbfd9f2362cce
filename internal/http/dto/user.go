package dto

import "github.com/xaenox/nutrobo/internal/models"

type UpdateProfileRequest struct {
	Name    string `json:"name"`
	ICRatio string `json:"icRatio"`
}

type UserResponse struct {
	ID      string         `json:"id"`
	Threads []string       `json:"threads"`
	Profile models.Profile `json:"profile"`
}

func ToUserResponse(u *models.User) *UserResponse {
	threads := u.Threads
	if threads == nil {
		threads = []string{}
	}
	return &UserResponse{
		ID:      u.ID,
		Threads: threads,
		Profile: u.Profile,
	}
}
