package widgets

// Placeholder shown by rich pickers before a selection is made.
const Placeholder = "برای انتخاب کلیک کنید..."

// PickerConfig configures the searchable select widget.
type PickerConfig struct {
	Placeholder string `json:"placeholder"`
	Dir         string `json:"dir"`
	Width       string `json:"width"`
	Multiple    bool   `json:"multiple,omitempty"`
}

// DefaultPicker returns the right-to-left picker configuration.
func DefaultPicker() PickerConfig {
	return PickerConfig{Placeholder: Placeholder, Dir: "rtl", Width: "100%"}
}

// DateConfig configures the Persian calendar date picker.
type DateConfig struct {
	Format       string `json:"format"`
	AutoClose    bool   `json:"autoClose"`
	InitialValue bool   `json:"initialValue"`
	PersianDigit bool   `json:"persianDigit"`
}

// DefaultDate returns a picker that writes ASCII digits and starts empty.
func DefaultDate() DateConfig {
	return DateConfig{Format: "L", AutoClose: true}
}

// Paginate holds the pager labels of the grid language pack.
type Paginate struct {
	First    string `json:"first"`
	Last     string `json:"last"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
}

// Aria holds accessibility labels of the grid language pack.
type Aria struct {
	Orderable        string `json:"orderable"`
	OrderableReverse string `json:"orderableReverse"`
}

// Language is the data grid language pack.
type Language struct {
	Decimal        string   `json:"decimal"`
	EmptyTable     string   `json:"emptyTable"`
	Info           string   `json:"info"`
	InfoEmpty      string   `json:"infoEmpty"`
	InfoFiltered   string   `json:"infoFiltered"`
	InfoPostFix    string   `json:"infoPostFix"`
	Thousands      string   `json:"thousands"`
	LengthMenu     string   `json:"lengthMenu"`
	LoadingRecords string   `json:"loadingRecords"`
	Processing     string   `json:"processing"`
	Search         string   `json:"search"`
	ZeroRecords    string   `json:"zeroRecords"`
	Paginate       Paginate `json:"paginate"`
	Aria           Aria     `json:"aria"`
}

// EmptyText is shown for grids without rows.
const EmptyText = "داده یافت نشد"

// PersianLanguage returns the Persian grid language pack.
func PersianLanguage() Language {
	return Language{
		EmptyTable:     EmptyText,
		Info:           "نمایش _START_ تا _END_ از _TOTAL_ سطر",
		InfoEmpty:      "نمایش 0 تا 0 از 0 سطر",
		InfoFiltered:   "(فیلترشده از تمامی _MAX_ سطر)",
		Thousands:      ",",
		LengthMenu:     "نمایش _MENU_ سطر",
		LoadingRecords: "بارگذاری...",
		Search:         "جستجو:",
		ZeroRecords:    EmptyText,
		Paginate: Paginate{
			First:    "ابتدا",
			Last:     "انتها",
			Next:     "بعدی",
			Previous: "قبلی",
		},
		Aria: Aria{
			Orderable:        "مرتب سازی بر اساس این ستون",
			OrderableReverse: "مرتب سازی معکوس بر اساس این ستون",
		},
	}
}

// GridConfig is the option set handed to the data grid initializer. Nil
// pointers leave the grid default in place.
type GridConfig struct {
	Select    *bool    `json:"select,omitempty"`
	Paging    *bool    `json:"paging,omitempty"`
	Searching *bool    `json:"searching,omitempty"`
	Info      *bool    `json:"info,omitempty"`
	Direction string   `json:"direction,omitempty"`
	Language  Language `json:"language"`
}

func flag(v bool) *bool { return &v }

// InformTable is used for compact grids inside detail and preview panes.
func InformTable() GridConfig {
	return GridConfig{
		Select:    flag(false),
		Paging:    flag(false),
		Searching: flag(false),
		Info:      flag(false),
		Language:  PersianLanguage(),
	}
}

// TabTable is used for grids inside tab containers.
func TabTable() GridConfig {
	return GridConfig{Language: PersianLanguage()}
}

// UserTable is used for the top-level record listings.
func UserTable() GridConfig {
	return GridConfig{
		Select:    flag(true),
		Paging:    flag(true),
		Direction: "right",
		Language:  PersianLanguage(),
	}
}
