package extract

import (
	"io"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/constants"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/record"
)

// Source column names.
const (
	ColTitleNumber     = "TITLE_NMBR"
	ColDistrict        = "LTB_DISTRICT_CD"
	ColTitleStatus     = "TTL_STTS_CD"
	ColFromTitleNumber = "FRM_TTL_NMBR"
	ColFromDistrict    = "FRM_LT_DISTRICT_CD"
	ColPid             = "PRMNNT_PRCL_ID"
	ColParcelStatus    = "PRCL_STTS_CD"
	ColGivenName       = "CLIENT_GVN_NM"
	ColLastName1       = "CLIENT_LST_NM_1"
	ColLastName2       = "CLIENT_LST_NM_2"
	ColOccupation      = "OCCPTN_DESC"
	ColIncorporation   = "INCRPRTN_NMBR"
	ColAddress1        = "ADDRS_DESC_1"
	ColAddress2        = "ADDRS_DESC_2"
	ColCity            = "ADDRS_CITY"
	ColProvinceCode    = "ADDRS_PROV_CD"
	ColProvinceLong    = "ADDRS_PROV_ST"
	ColCountry         = "ADDRS_CNTRY"
	ColPostalCode      = "ADDRS_PSTL_CD"
)

// RequiredColumns are the columns each file must carry. Other columns are ignored.
var RequiredColumns = map[FileKind][]string{
	KindTitle:       {ColTitleNumber, ColDistrict, ColTitleStatus, ColFromTitleNumber, ColFromDistrict},
	KindParcel:      {ColPid, ColParcelStatus},
	KindTitleParcel: {ColTitleNumber, ColDistrict, ColPid},
	KindTitleOwner: {ColTitleNumber, ColDistrict, ColGivenName, ColLastName1, ColLastName2, ColOccupation,
		ColIncorporation, ColAddress1, ColAddress2, ColCity, ColProvinceCode, ColProvinceLong, ColCountry, ColPostalCode},
}

// Title is a row of the title file. Empty strings are absent values.
type Title struct {
	TitleNumber     string
	District        string
	Status          string
	FromTitleNumber string
	FromDistrict    string
}

// Key returns the identity of the title.
func (t Title) Key() TitleKey {
	return TitleKey{t.TitleNumber, t.District}
}

// IsCancelled returns true if the registry has cancelled the title.
func (t Title) IsCancelled() bool {
	return t.Status == constants.TitleStatusCancelled
}

// Parcel is a row of the parcel file.
type Parcel struct {
	PID    int64
	Status string
}

// IsActive returns true unless the parcel is marked inactive.
func (p Parcel) IsActive() bool {
	return p.Status != constants.ParcelStatusInactive
}

// TitleParcel links a title to a parcel.
type TitleParcel struct {
	TitleNumber string
	District    string
	PID         int64
}

func (tp TitleParcel) Key() TitleKey {
	return TitleKey{tp.TitleNumber, tp.District}
}

// TitleOwner is one owner of a title. A title can have many.
type TitleOwner struct {
	TitleNumber         string
	District            string
	GivenName           string
	LastName1           string
	LastName2           string
	Occupation          string
	IncorporationNumber string
	Address1            string
	Address2            string
	City                string
	ProvinceCode        string
	ProvinceLong        string
	Country             string
	PostalCode          string
}

func (o TitleOwner) Key() TitleKey {
	return TitleKey{o.TitleNumber, o.District}
}

// TitleKey identifies a title.
type TitleKey struct {
	TitleNumber string
	District    string
}

// Extract is the normalised, filtered content of one extract folder.
type Extract struct {
	Titles       []Title
	Parcels      []Parcel
	TitleParcels []TitleParcel
	TitleOwners  []TitleOwner
}

// CancelledTitles returns the keys of every title with the cancelled status, in file order without repeats.
func (e *Extract) CancelledTitles() []TitleKey {
	seen := make(map[TitleKey]struct{})
	var retval []TitleKey
	for _, t := range e.Titles {
		if !t.IsCancelled() {
			continue
		}
		if _, ok := seen[t.Key()]; ok {
			continue
		}
		seen[t.Key()] = struct{}{}
		retval = append(retval, t.Key())
	}
	return retval
}

// Load reads the four extract files in dir, normalises them and keeps only rows that reference a valid PID.
// Titles and owners are kept only if a remaining title-parcel row references them.
func Load(log logger.Logger, dir string, valid ValidPidSet) (*Extract, error) {
	files, err := FindFiles(dir)
	if err != nil {
		return nil, err
	}
	// Check every header before reading any rows so a bad file fails fast.
	for _, k := range AllKinds {
		c, err := openCsvFile(files[k], RequiredColumns[k])
		if err != nil {
			return nil, err
		}
		c.close()
	}
	e := &Extract{}
	if e.Titles, err = readTitles(files[KindTitle]); err != nil {
		return nil, err
	}
	if e.Parcels, err = readParcels(files[KindParcel]); err != nil {
		return nil, err
	}
	if e.TitleParcels, err = readTitleParcels(files[KindTitleParcel]); err != nil {
		return nil, err
	}
	if e.TitleOwners, err = readTitleOwners(files[KindTitleOwner]); err != nil {
		return nil, err
	}
	log.Info("read extract files: titles = ", len(e.Titles), "; parcels = ", len(e.Parcels),
		"; title-parcels = ", len(e.TitleParcels), "; title-owners = ", len(e.TitleOwners))
	e.FilterByValidPids(log, valid)
	return e, nil
}

// FilterByValidPids drops rows that reference unknown PIDs and then titles and owners without a remaining parcel link.
func (e *Extract) FilterByValidPids(log logger.Logger, valid ValidPidSet) {
	n := len(e.Parcels)
	parcels := e.Parcels[:0]
	for _, p := range e.Parcels {
		if valid.Contains(p.PID) {
			parcels = append(parcels, p)
		}
	}
	e.Parcels = parcels
	log.Info("parcels filtered by valid PID: before = ", n, "; after = ", len(e.Parcels))

	n = len(e.TitleParcels)
	links := e.TitleParcels[:0]
	keys := make(map[TitleKey]struct{})
	for _, tp := range e.TitleParcels {
		if valid.Contains(tp.PID) {
			links = append(links, tp)
			keys[tp.Key()] = struct{}{}
		}
	}
	e.TitleParcels = links
	log.Info("title-parcels filtered by valid PID: before = ", n, "; after = ", len(e.TitleParcels))

	n = len(e.Titles)
	titles := e.Titles[:0]
	for _, t := range e.Titles {
		if _, ok := keys[t.Key()]; ok {
			titles = append(titles, t)
		}
	}
	e.Titles = titles
	log.Info("titles filtered by title-parcel: before = ", n, "; after = ", len(e.Titles))

	n = len(e.TitleOwners)
	owners := e.TitleOwners[:0]
	for _, o := range e.TitleOwners {
		if _, ok := keys[o.Key()]; ok {
			owners = append(owners, o)
		}
	}
	e.TitleOwners = owners
	log.Info("title-owners filtered by title-parcel: before = ", n, "; after = ", len(e.TitleOwners))
}

func readTitles(path string) ([]Title, error) {
	c, err := openCsvFile(path, RequiredColumns[KindTitle])
	if err != nil {
		return nil, err
	}
	defer c.close()
	var retval []Title
	for {
		get, err := c.next()
		if err == io.EOF {
			return retval, nil
		} else if err != nil {
			return nil, err
		}
		retval = append(retval, Title{
			TitleNumber:     get(ColTitleNumber),
			District:        get(ColDistrict),
			Status:          get(ColTitleStatus),
			FromTitleNumber: get(ColFromTitleNumber),
			FromDistrict:    get(ColFromDistrict),
		})
	}
}

func readParcels(path string) ([]Parcel, error) {
	c, err := openCsvFile(path, RequiredColumns[KindParcel])
	if err != nil {
		return nil, err
	}
	defer c.close()
	var retval []Parcel
	for {
		get, err := c.next()
		if err == io.EOF {
			return retval, nil
		} else if err != nil {
			return nil, err
		}
		pid, err := c.pid(get(ColPid))
		if err != nil {
			return nil, err
		}
		retval = append(retval, Parcel{PID: pid, Status: get(ColParcelStatus)})
	}
}

func readTitleParcels(path string) ([]TitleParcel, error) {
	c, err := openCsvFile(path, RequiredColumns[KindTitleParcel])
	if err != nil {
		return nil, err
	}
	defer c.close()
	var retval []TitleParcel
	for {
		get, err := c.next()
		if err == io.EOF {
			return retval, nil
		} else if err != nil {
			return nil, err
		}
		pid, err := c.pid(get(ColPid))
		if err != nil {
			return nil, err
		}
		retval = append(retval, TitleParcel{TitleNumber: get(ColTitleNumber), District: get(ColDistrict), PID: pid})
	}
}

func readTitleOwners(path string) ([]TitleOwner, error) {
	c, err := openCsvFile(path, RequiredColumns[KindTitleOwner])
	if err != nil {
		return nil, err
	}
	defer c.close()
	var retval []TitleOwner
	for {
		get, err := c.next()
		if err == io.EOF {
			return retval, nil
		} else if err != nil {
			return nil, err
		}
		retval = append(retval, TitleOwner{
			TitleNumber:         get(ColTitleNumber),
			District:            get(ColDistrict),
			GivenName:           get(ColGivenName),
			LastName1:           get(ColLastName1),
			LastName2:           get(ColLastName2),
			Occupation:          get(ColOccupation),
			IncorporationNumber: get(ColIncorporation),
			Address1:            get(ColAddress1),
			Address2:            get(ColAddress2),
			City:                get(ColCity),
			ProvinceCode:        get(ColProvinceCode),
			ProvinceLong:        get(ColProvinceLong),
			Country:             get(ColCountry),
			PostalCode:          get(ColPostalCode),
		})
	}
}

// str converts the empty string used for absent values in the extract structs to nil.
func str(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// RawTables returns the filtered extract as the raw snapshot tables, each row tagged with jobID.
func (e *Extract) RawTables(jobID int64) []*record.Table {
	titles := record.NewTable(constants.TableTitleRaw, "title_number", "land_title_district", "title_status",
		"from_title_number", "from_land_title_district", constants.ColumnEtlJobID)
	for _, t := range e.Titles {
		_ = titles.Append(str(t.TitleNumber), str(t.District), str(t.Status), str(t.FromTitleNumber), str(t.FromDistrict), jobID)
	}
	parcels := record.NewTable(constants.TableParcelRaw, "pid", "parcel_status", constants.ColumnEtlJobID)
	for _, p := range e.Parcels {
		_ = parcels.Append(p.PID, str(p.Status), jobID)
	}
	links := record.NewTable(constants.TableTitleParcelRaw, "title_number", "land_title_district", "pid", constants.ColumnEtlJobID)
	for _, tp := range e.TitleParcels {
		_ = links.Append(str(tp.TitleNumber), str(tp.District), tp.PID, jobID)
	}
	owners := record.NewTable(constants.TableTitleOwnerRaw, "title_number", "land_title_district", "given_name",
		"last_name_1", "last_name_2", "occupation", "incorporation_number", "address_line_1", "address_line_2",
		"city", "province_abbreviation", "province_long", "country", "postal_code", constants.ColumnEtlJobID)
	for _, o := range e.TitleOwners {
		_ = owners.Append(str(o.TitleNumber), str(o.District), str(o.GivenName), str(o.LastName1), str(o.LastName2),
			str(o.Occupation), str(o.IncorporationNumber), str(o.Address1), str(o.Address2), str(o.City),
			str(o.ProvinceCode), str(o.ProvinceLong), str(o.Country), str(o.PostalCode), jobID)
	}
	return []*record.Table{titles, parcels, links, owners}
}
