// internal/models/location.go
package models

// LocationPoint is a geocoded coordinate with its administrative hierarchy,
// from country (level 0) down to the most specific subdivision known.
type LocationPoint struct {
	ID        int64   `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	Admin0Type string `json:"admin0Type,omitempty"`
	Admin0Name string `json:"admin0Name,omitempty"`
	GID0       string `json:"gid0,omitempty"`

	Admin1Type string `json:"admin1Type,omitempty"`
	Admin1Name string `json:"admin1Name,omitempty"`
	GID1       string `json:"gid1,omitempty"`

	Admin2Type string `json:"admin2Type,omitempty"`
	Admin2Name string `json:"admin2Name,omitempty"`
	GID2       string `json:"gid2,omitempty"`

	Admin3Type string `json:"admin3Type,omitempty"`
	Admin3Name string `json:"admin3Name,omitempty"`
	GID3       string `json:"gid3,omitempty"`

	Admin4Type string `json:"admin4Type,omitempty"`
	Admin4Name string `json:"admin4Name,omitempty"`
	GID4       string `json:"gid4,omitempty"`

	Admin5Type string `json:"admin5Type,omitempty"`
	Admin5Name string `json:"admin5Name,omitempty"`
	GID5       string `json:"gid5,omitempty"`
}

// MostSpecificName returns the most detailed subdivision name available,
// falling back toward the country name.
func (lp *LocationPoint) MostSpecificName() string {
	for _, name := range []string{lp.Admin5Name, lp.Admin4Name, lp.Admin3Name, lp.Admin2Name, lp.Admin1Name} {
		if name != "" {
			return name
		}
	}
	return lp.Admin0Name
}
