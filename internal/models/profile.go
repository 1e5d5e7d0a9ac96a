package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RoleProfile is the role-specific half of an account. Exactly one variant
// exists per role and the set is closed to this package.
type RoleProfile interface {
	// ProfileRole is the role this variant belongs to.
	ProfileRole() Role
	// SetAccountID binds the variant to its owning account.
	SetAccountID(id uint)
	// Fields lists the attribute keys the variant accepts.
	Fields() []string
	// Set assigns one attribute from its textual form.
	Set(field, value string) error

	project(v *ProfileView)
}

// NewProfile returns an empty variant for role, or nil for an unassigned role.
func NewProfile(role Role) RoleProfile {
	switch role {
	case RoleFarmer:
		return &FarmerProfile{}
	case RoleExpertAdvisor:
		return &ExpertAdvisorProfile{}
	case RoleAdministrator:
		return &AdministratorProfile{}
	case RoleGovernmentOfficial:
		return &GovernmentOfficialProfile{}
	case RoleRetailer:
		return &RetailerProfile{}
	default:
		return nil
	}
}

// ProfileModels lists the variant tables for migrations and cascades.
func ProfileModels() []interface{} {
	return []interface{}{
		&FarmerProfile{},
		&ExpertAdvisorProfile{},
		&AdministratorProfile{},
		&GovernmentOfficialProfile{},
		&RetailerProfile{},
	}
}

// FarmerProfile holds farm and crop details.
type FarmerProfile struct {
	AccountID         uint   `gorm:"primaryKey;autoIncrement:false" json:"-"`
	Location          string `gorm:"size:255" json:"location"`
	Village           string `gorm:"size:255" json:"village"`
	State             string `gorm:"size:255" json:"state"`
	Region            string `gorm:"size:255" json:"region"`
	TypeOfFarming     string `gorm:"size:100" json:"type_of_farming"`
	FarmSize          string `gorm:"size:100" json:"farm_size"`
	MainCrops         string `gorm:"size:255" json:"main_crops"`
	InterestedCrops   string `gorm:"size:255" json:"interested_crops"`
	PreferredLanguage string `gorm:"size:50" json:"preferred_language"`
}

func (FarmerProfile) TableName() string       { return "farmer_profiles" }
func (*FarmerProfile) ProfileRole() Role      { return RoleFarmer }
func (p *FarmerProfile) SetAccountID(id uint) { p.AccountID = id }

func (*FarmerProfile) Fields() []string {
	return []string{"location", "village", "state", "region", "type_of_farming",
		"farm_size", "main_crops", "interested_crops", "preferred_language"}
}

func (p *FarmerProfile) Set(field, value string) error {
	switch field {
	case "location":
		p.Location = value
	case "village":
		p.Village = value
	case "state":
		p.State = value
	case "region":
		p.Region = value
	case "type_of_farming":
		p.TypeOfFarming = value
	case "farm_size":
		p.FarmSize = value
	case "main_crops":
		p.MainCrops = value
	case "interested_crops":
		p.InterestedCrops = value
	case "preferred_language":
		p.PreferredLanguage = value
	default:
		return errUnknownField(field, RoleFarmer)
	}
	return nil
}

func (p *FarmerProfile) project(v *ProfileView) {
	v.Location = p.Location
	v.Village = p.Village
	v.State = p.State
	v.Region = p.Region
	v.TypeOfFarming = p.TypeOfFarming
	v.FarmSize = p.FarmSize
	v.MainCrops = p.MainCrops
	v.InterestedCrops = p.InterestedCrops
	v.PreferredLanguage = p.PreferredLanguage
}

// ExpertAdvisorProfile holds advisory expertise and availability.
type ExpertAdvisorProfile struct {
	AccountID           uint   `gorm:"primaryKey;autoIncrement:false" json:"-"`
	ExpertiseArea       string `gorm:"size:255" json:"expertise_area"`
	ExperienceYears     *int   `json:"experience_years"`
	AvailableForConsult bool   `gorm:"not null;default:false" json:"available_for_consult"`
	StateOfOperation    string `gorm:"size:255" json:"state_of_operation"`
	LanguagesSpoken     string `gorm:"size:255" json:"languages_spoken"`
}

func (ExpertAdvisorProfile) TableName() string       { return "expert_advisor_profiles" }
func (*ExpertAdvisorProfile) ProfileRole() Role      { return RoleExpertAdvisor }
func (p *ExpertAdvisorProfile) SetAccountID(id uint) { p.AccountID = id }

func (*ExpertAdvisorProfile) Fields() []string {
	return []string{"expertise_area", "experience_years", "available_for_consult",
		"state_of_operation", "languages_spoken"}
}

func (p *ExpertAdvisorProfile) Set(field, value string) error {
	switch field {
	case "expertise_area":
		p.ExpertiseArea = value
	case "experience_years":
		years, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || years < 0 || years > 80 {
			return fmt.Errorf("must be a whole number between 0 and 80")
		}
		p.ExperienceYears = &years
	case "available_for_consult":
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("must be true or false")
		}
		p.AvailableForConsult = b
	case "state_of_operation":
		p.StateOfOperation = value
	case "languages_spoken":
		p.LanguagesSpoken = value
	default:
		return errUnknownField(field, RoleExpertAdvisor)
	}
	return nil
}

func (p *ExpertAdvisorProfile) project(v *ProfileView) {
	v.ExpertiseArea = p.ExpertiseArea
	if p.ExperienceYears != nil {
		v.ExperienceYears = strconv.Itoa(*p.ExperienceYears)
	}
	v.AvailableForConsult = strconv.FormatBool(p.AvailableForConsult)
	v.StateOfOperation = p.StateOfOperation
	v.LanguagesSpoken = p.LanguagesSpoken
}

// AdministratorProfile holds staff designation details.
type AdministratorProfile struct {
	AccountID              uint   `gorm:"primaryKey;autoIncrement:false" json:"-"`
	Designation            string `gorm:"size:255" json:"designation"`
	AccessLevel            string `gorm:"size:50" json:"access_level"`
	EmployeeID             string `gorm:"size:100" json:"employee_id"`
	RegionOfResponsibility string `gorm:"size:255" json:"region_of_responsibility"`
}

func (AdministratorProfile) TableName() string       { return "administrator_profiles" }
func (*AdministratorProfile) ProfileRole() Role      { return RoleAdministrator }
func (p *AdministratorProfile) SetAccountID(id uint) { p.AccountID = id }

func (*AdministratorProfile) Fields() []string {
	return []string{"designation", "access_level", "employee_id", "region_of_responsibility"}
}

func (p *AdministratorProfile) Set(field, value string) error {
	switch field {
	case "designation":
		p.Designation = value
	case "access_level":
		p.AccessLevel = value
	case "employee_id":
		p.EmployeeID = value
	case "region_of_responsibility":
		p.RegionOfResponsibility = value
	default:
		return errUnknownField(field, RoleAdministrator)
	}
	return nil
}

func (p *AdministratorProfile) project(v *ProfileView) {
	v.Designation = p.Designation
	v.AccessLevel = p.AccessLevel
	v.EmployeeID = p.EmployeeID
	v.RegionOfResponsibility = p.RegionOfResponsibility
}

// GovernmentOfficialProfile holds department and scheme responsibilities.
type GovernmentOfficialProfile struct {
	AccountID      uint   `gorm:"primaryKey;autoIncrement:false" json:"-"`
	DepartmentName string `gorm:"size:255" json:"department_name"`
	GovDesignation string `gorm:"size:255" json:"gov_designation"`
	OfficialEmail  string `gorm:"size:254" json:"official_email"`
	GovIDBadge     string `gorm:"size:100" json:"gov_id_badge"`
	SchemesManaged string `gorm:"type:text" json:"schemes_managed"`
}

func (GovernmentOfficialProfile) TableName() string       { return "government_official_profiles" }
func (*GovernmentOfficialProfile) ProfileRole() Role      { return RoleGovernmentOfficial }
func (p *GovernmentOfficialProfile) SetAccountID(id uint) { p.AccountID = id }

func (*GovernmentOfficialProfile) Fields() []string {
	return []string{"department_name", "gov_designation", "official_email", "gov_id_badge", "schemes_managed"}
}

func (p *GovernmentOfficialProfile) Set(field, value string) error {
	switch field {
	case "department_name":
		p.DepartmentName = value
	case "gov_designation":
		p.GovDesignation = value
	case "official_email":
		if value != "" && !strings.Contains(value, "@") {
			return fmt.Errorf("must be an email address")
		}
		p.OfficialEmail = value
	case "gov_id_badge":
		p.GovIDBadge = value
	case "schemes_managed":
		p.SchemesManaged = value
	default:
		return errUnknownField(field, RoleGovernmentOfficial)
	}
	return nil
}

func (p *GovernmentOfficialProfile) project(v *ProfileView) {
	v.DepartmentName = p.DepartmentName
	v.GovDesignation = p.GovDesignation
	v.OfficialEmail = p.OfficialEmail
	v.GovIDBadge = p.GovIDBadge
	v.SchemesManaged = p.SchemesManaged
}

// RetailerProfile holds business registration details.
type RetailerProfile struct {
	AccountID            uint   `gorm:"primaryKey;autoIncrement:false" json:"-"`
	BusinessName         string `gorm:"size:255" json:"business_name"`
	TypeOfBusiness       string `gorm:"size:100" json:"type_of_business"`
	LicenseNumber        string `gorm:"size:100" json:"license_number"`
	BuyerDashboardAccess bool   `gorm:"not null;default:false" json:"buyer_dashboard_access"`
}

func (RetailerProfile) TableName() string       { return "retailer_profiles" }
func (*RetailerProfile) ProfileRole() Role      { return RoleRetailer }
func (p *RetailerProfile) SetAccountID(id uint) { p.AccountID = id }

func (*RetailerProfile) Fields() []string {
	return []string{"business_name", "type_of_business", "license_number", "buyer_dashboard_access"}
}

func (p *RetailerProfile) Set(field, value string) error {
	switch field {
	case "business_name":
		p.BusinessName = value
	case "type_of_business":
		p.TypeOfBusiness = value
	case "license_number":
		p.LicenseNumber = value
	case "buyer_dashboard_access":
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("must be true or false")
		}
		p.BuyerDashboardAccess = b
	default:
		return errUnknownField(field, RoleRetailer)
	}
	return nil
}

func (p *RetailerProfile) project(v *ProfileView) {
	v.BusinessName = p.BusinessName
	v.TypeOfBusiness = p.TypeOfBusiness
	v.LicenseNumber = p.LicenseNumber
	v.BuyerDashboardAccess = strconv.FormatBool(p.BuyerDashboardAccess)
}

func errUnknownField(field string, role Role) error {
	return fmt.Errorf("not a %s attribute: %s", role, field)
}

// ProfileAttributeNames lists the role attribute keys of every variant.
func ProfileAttributeNames() []string {
	var names []string
	for _, role := range Roles {
		names = append(names, NewProfile(role).Fields()...)
	}
	return names
}

// ProfileView is the API shape of an account. Every field is always present;
// attributes belonging to other roles are empty strings.
type ProfileView struct {
	ID           uint   `json:"id"`
	Phone        string `json:"phone"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	IsStaff      bool   `json:"is_staff"`
	IsActive     bool   `json:"is_active"`
	ProfileImage string `json:"profile_image"`
	DateJoined   string `json:"date_joined"`
	LastLogin    string `json:"last_login"`

	Location          string `json:"location"`
	Village           string `json:"village"`
	State             string `json:"state"`
	Region            string `json:"region"`
	TypeOfFarming     string `json:"type_of_farming"`
	FarmSize          string `json:"farm_size"`
	MainCrops         string `json:"main_crops"`
	InterestedCrops   string `json:"interested_crops"`
	PreferredLanguage string `json:"preferred_language"`

	ExpertiseArea       string `json:"expertise_area"`
	ExperienceYears     string `json:"experience_years"`
	AvailableForConsult string `json:"available_for_consult"`
	StateOfOperation    string `json:"state_of_operation"`
	LanguagesSpoken     string `json:"languages_spoken"`

	Designation            string `json:"designation"`
	AccessLevel            string `json:"access_level"`
	EmployeeID             string `json:"employee_id"`
	RegionOfResponsibility string `json:"region_of_responsibility"`

	DepartmentName string `json:"department_name"`
	GovDesignation string `json:"gov_designation"`
	OfficialEmail  string `json:"official_email"`
	GovIDBadge     string `json:"gov_id_badge"`
	SchemesManaged string `json:"schemes_managed"`

	BusinessName         string `json:"business_name"`
	TypeOfBusiness       string `json:"type_of_business"`
	LicenseNumber        string `json:"license_number"`
	BuyerDashboardAccess string `json:"buyer_dashboard_access"`
}

// ProjectProfile renders an account into its API shape. Only the variant
// matching the account role is copied in.
func ProjectProfile(a *Account) ProfileView {
	v := ProfileView{
		ID:           a.ID,
		Phone:        a.Phone,
		Name:         a.Name,
		Email:        a.EmailValue(),
		Role:         string(a.Role),
		IsStaff:      a.IsStaff(),
		IsActive:     a.IsActive,
		ProfileImage: a.ProfileImage,
	}
	if !a.CreatedAt.IsZero() {
		v.DateJoined = a.CreatedAt.UTC().Format(time.RFC3339)
	}
	if a.LastLogin != nil {
		v.LastLogin = a.LastLogin.UTC().Format(time.RFC3339)
	}
	if a.Profile != nil && a.Profile.ProfileRole() == a.Role {
		a.Profile.project(&v)
	}
	return v
}

// ProjectProfiles renders a list of accounts.
func ProjectProfiles(accounts []Account) []ProfileView {
	out := make([]ProfileView, 0, len(accounts))
	for i := range accounts {
		out = append(out, ProjectProfile(&accounts[i]))
	}
	return out
}
