package model

import "time"

// User is the signed-in customer as returned by the booking API.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type Provider struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// DayAvailability is one hourly record for one provider on one calendar day.
type DayAvailability struct {
	Hour      int  `json:"hour"`
	Available bool `json:"available"`
}

// DayAvailabilityQuery identifies which day's slots to fetch. Month is 1-12.
type DayAvailabilityQuery struct {
	ProviderID string
	Year       int
	Month      int
	Day        int
}

func QueryFor(providerID string, day time.Time) DayAvailabilityQuery {
	return DayAvailabilityQuery{
		ProviderID: providerID,
		Year:       day.Year(),
		Month:      int(day.Month()),
		Day:        day.Day(),
	}
}
