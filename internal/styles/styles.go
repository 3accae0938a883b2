package styles

import "github.com/charmbracelet/lipgloss"

// Color palette, set by ApplyTheme.
var (
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color

	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color

	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color
	TextSubtle    lipgloss.Color

	BgPrimary   lipgloss.Color
	BgSecondary lipgloss.Color
	BgTertiary  lipgloss.Color

	BorderNormal lipgloss.Color
	BorderActive lipgloss.Color

	ToastSuccessTextColor lipgloss.Color
	ToastErrorTextColor   lipgloss.Color

	// CurrentMarkdownTheme is the glamour style matching the palette.
	CurrentMarkdownTheme = "dark"
)

// Panel styles
var (
	PanelActive   lipgloss.Style
	PanelInactive lipgloss.Style
	PanelHeader   lipgloss.Style
)

// Text styles
var (
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Subtle   lipgloss.Style
	KeyHint  lipgloss.Style
	Logo     lipgloss.Style
	ErrText  lipgloss.Style
)

// Toasts
var (
	ToastSuccess lipgloss.Style
	ToastError   lipgloss.Style
)

// List item styles
var (
	ListItemNormal   lipgloss.Style
	ListItemSelected lipgloss.Style
	ListItemFocused  lipgloss.Style
	ListCursor       lipgloss.Style
)

// Bar element styles (shared by header/footer)
var (
	BarTitle      lipgloss.Style
	BarText       lipgloss.Style
	BarChip       lipgloss.Style
	BarChipActive lipgloss.Style
)

// Overlays: menus, palette, settings
var (
	ModalBox      lipgloss.Style
	ModalTitle    lipgloss.Style
	SectionHeader lipgloss.Style
)

// Ribbon
var (
	RibbonIcon      lipgloss.Style
	RibbonIconHover lipgloss.Style
	RibbonSeparator lipgloss.Style
)

// Chat transcript
var (
	ChatHeader   lipgloss.Style
	UserLabel    lipgloss.Style
	BotLabel     lipgloss.Style
	MessageBlock lipgloss.Style
)

func init() {
	ApplyTheme(DefaultThemeName)
}

// rebuild derives every style from the current palette.
func rebuild() {
	PanelActive = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderActive)
	PanelInactive = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderNormal)
	PanelHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary)

	Title = lipgloss.NewStyle().Bold(true).Foreground(TextPrimary)
	Subtitle = lipgloss.NewStyle().Foreground(TextSecondary)
	Body = lipgloss.NewStyle().Foreground(TextPrimary)
	Muted = lipgloss.NewStyle().Foreground(TextMuted)
	Subtle = lipgloss.NewStyle().Foreground(TextSubtle)
	KeyHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Background(BgTertiary).
		Padding(0, 1)
	Logo = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	ErrText = lipgloss.NewStyle().Foreground(Error)

	ToastSuccess = lipgloss.NewStyle().
		Background(Success).
		Foreground(ToastSuccessTextColor).
		Bold(true).
		Padding(0, 1)
	ToastError = lipgloss.NewStyle().
		Background(Error).
		Foreground(ToastErrorTextColor).
		Bold(true).
		Padding(0, 1)

	ListItemNormal = lipgloss.NewStyle().Foreground(TextPrimary)
	ListItemSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(BgTertiary)
	ListItemFocused = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(Primary)
	ListCursor = lipgloss.NewStyle().Foreground(Primary).Bold(true)

	BarTitle = lipgloss.NewStyle().Foreground(TextPrimary).Bold(true)
	BarText = lipgloss.NewStyle().Foreground(TextMuted)
	BarChip = lipgloss.NewStyle().
		Foreground(TextMuted).
		Background(BgTertiary).
		Padding(0, 1)
	BarChipActive = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(Primary).
		Padding(0, 1).
		Bold(true)

	ModalBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Primary).
		Background(BgSecondary).
		Padding(0, 1)
	ModalTitle = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	SectionHeader = lipgloss.NewStyle().Bold(true).Foreground(Secondary)

	RibbonIcon = lipgloss.NewStyle().Foreground(TextSecondary).Padding(0, 1)
	RibbonIconHover = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(BgTertiary).
		Padding(0, 1)
	RibbonSeparator = lipgloss.NewStyle().Foreground(BorderNormal)

	ChatHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextPrimary).
		Background(BgTertiary).
		Padding(0, 1)
	UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Secondary)
	BotLabel = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	MessageBlock = lipgloss.NewStyle().Padding(0, 1)
}
