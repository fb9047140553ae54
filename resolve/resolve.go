// Package resolve joins the filtered extract into one Active PIN record per title owner.
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/constants"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/extract"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/record"
)

// Active PIN columns.
const (
	ColTitleNumber         = "title_number"
	ColDistrict            = "land_title_district"
	ColTitleStatus         = "title_status"
	ColFromTitleNumber     = "from_title_number"
	ColFromDistrict        = "from_land_title_district"
	ColGivenName           = "given_name"
	ColLastName1           = "last_name_1"
	ColLastName2           = "last_name_2"
	ColOccupation          = "occupation"
	ColIncorporationNumber = "incorporation_number"
	ColAddress1            = "address_line_1"
	ColAddress2            = "address_line_2"
	ColCity                = "city"
	ColProvinceCode        = "province_abbreviation"
	ColProvinceLong        = "province_long"
	ColCountry             = "country"
	ColPostalCode          = "postal_code"
	ColPids                = "pids"
)

// Columns is the layout of the resolved table.
var Columns = []string{
	ColTitleNumber, ColDistrict, ColTitleStatus, ColFromTitleNumber, ColFromDistrict,
	ColGivenName, ColLastName1, ColLastName2, ColOccupation, ColIncorporationNumber,
	ColAddress1, ColAddress2, ColCity, ColProvinceCode, ColProvinceLong, ColCountry, ColPostalCode,
	ColPids,
}

// ScratchColumns are only used by cleaning rules and are dropped before the table is loaded.
var ScratchColumns = []string{ColOccupation, ColProvinceLong}

// KeyColumns is the unique key of the loaded active_pin table.
var KeyColumns = []string{
	ColTitleNumber, ColDistrict, ColTitleStatus, ColFromTitleNumber, ColFromDistrict,
	ColGivenName, ColLastName1, ColLastName2, ColIncorporationNumber,
	ColAddress1, ColAddress2, ColCity, ColProvinceCode, ColCountry, ColPostalCode,
	ColPids,
}

// FormatPids returns the sorted unique PIDs, each zero padded to nine digits and joined with a pipe.
func FormatPids(pids []int64) string {
	unique := make(map[int64]struct{}, len(pids))
	for _, p := range pids {
		unique[p] = struct{}{}
	}
	padded := make([]string, 0, len(unique))
	for p := range unique {
		padded = append(padded, fmt.Sprintf("%0*d", constants.PidWidth, p))
	}
	sort.Strings(padded)
	return strings.Join(padded, constants.PidSeparator)
}

type ownerTitle struct {
	owner extract.TitleOwner
	title extract.Title
}

// Resolve joins owners to titles and title-parcels to parcels, aggregates the active PIDs of every
// title number and returns one deduplicated row per title owner.
// Titles without an active parcel produce no rows.
func Resolve(log logger.Logger, e *extract.Extract) *record.Table {
	// owner ⋈ title on (title_number, land_title_district).
	titles := make(map[extract.TitleKey][]extract.Title, len(e.Titles))
	for _, t := range e.Titles {
		titles[t.Key()] = append(titles[t.Key()], t)
	}
	var owned []ownerTitle
	for _, o := range e.TitleOwners {
		for _, t := range titles[o.Key()] {
			owned = append(owned, ownerTitle{owner: o, title: t})
		}
	}
	log.Info("joined title-owners to titles: owners = ", len(e.TitleOwners), "; titles = ", len(e.Titles), "; rows = ", len(owned))

	// title-parcel ⋈ parcel on pid.
	parcels := make(map[int64][]extract.Parcel, len(e.Parcels))
	for _, p := range e.Parcels {
		parcels[p.PID] = append(parcels[p.PID], p)
	}
	type linkedParcel struct {
		key    extract.TitleKey
		parcel extract.Parcel
	}
	var linked []linkedParcel
	for _, tp := range e.TitleParcels {
		for _, p := range parcels[tp.PID] {
			linked = append(linked, linkedParcel{key: tp.Key(), parcel: p})
		}
	}
	log.Info("joined title-parcels to parcels: title-parcels = ", len(e.TitleParcels), "; parcels = ", len(e.Parcels), "; rows = ", len(linked))

	// Aggregate the active PIDs per title number, using only titles that survived the owner join.
	ownedKeys := make(map[extract.TitleKey]struct{}, len(owned))
	for _, ot := range owned {
		ownedKeys[ot.title.Key()] = struct{}{}
	}
	activePids := make(map[string][]int64)
	for _, lp := range linked {
		if _, ok := ownedKeys[lp.key]; !ok {
			continue
		}
		if !lp.parcel.IsActive() {
			continue
		}
		activePids[lp.key.TitleNumber] = append(activePids[lp.key.TitleNumber], lp.parcel.PID)
	}
	pids := make(map[string]string, len(activePids))
	for titleNumber, p := range activePids {
		pids[titleNumber] = FormatPids(p)
	}
	log.Info("aggregated active PIDs for ", len(pids), " title numbers")

	// Merge the PIDs back onto each owner row. Aggregation happens first so an owner appears once per title
	// regardless of how many parcels the title has.
	t := record.NewTable(constants.TableActivePin, Columns...)
	for _, ot := range owned {
		p, ok := pids[ot.title.TitleNumber]
		if !ok { // if the title has no active parcels...
			continue
		}
		o := ot.owner
		_ = t.Append(
			str(ot.title.TitleNumber), str(ot.title.District), str(ot.title.Status), str(ot.title.FromTitleNumber), str(ot.title.FromDistrict),
			str(o.GivenName), str(o.LastName1), str(o.LastName2), str(o.Occupation), str(o.IncorporationNumber),
			str(o.Address1), str(o.Address2), str(o.City), str(o.ProvinceCode), str(o.ProvinceLong), str(o.Country), str(o.PostalCode),
			p,
		)
	}
	n := t.Len()
	removed := t.Dedup()
	log.Info("active PIN rows: before dedup = ", n, "; after dedup = ", t.Len(), "; duplicates removed = ", removed)
	return t
}

func str(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
