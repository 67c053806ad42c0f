// Package markup generates the edit forms and the public display fragments
// for each content kind. Form field names match the record fields exactly,
// and display fragments follow the structure the seeding extractors read.
package markup

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"

	"sitekeeper/internal/content"
	"sitekeeper/internal/dom"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

//go:embed templates/*.html
var templatesFS embed.FS

// EditPath is the URL prefix every edit form posts under.
const EditPath = "/edit"

type Renderer struct {
	tmpl   *template.Template
	policy *bluemonday.Policy
}

func New() (*Renderer, error) {
	tmpl, err := template.New("markup").Funcs(template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}).ParseFS(templatesFS, "templates/forms.html", "templates/display.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl, policy: bluemonday.UGCPolicy()}, nil
}

// Must is New for package-level wiring where the embedded templates are
// known to parse.
func Must() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// EditShell returns the default edit page used when the site has none.
func EditShell() []byte {
	b, err := templatesFS.ReadFile("templates/edit.html")
	if err != nil {
		panic(err)
	}
	return b
}

// FormAction is the submit URL of the form for (kind, index).
func FormAction(kind content.Kind, index int) string {
	return EditPath + "/" + kind.String() + "/" + strconv.Itoa(index)
}

// AddAction is the URL of the add control for kind.
func AddAction(kind content.Kind) string {
	return EditPath + "/" + kind.String() + "/add"
}

// ItemAddAction and ItemRemoveAction address the finances additional items.
func ItemAddAction() string { return EditPath + "/finances/items/add" }

func ItemRemoveAction(index int) string {
	return EditPath + "/finances/items/" + strconv.Itoa(index) + "/remove"
}

type formVM struct {
	Kind          content.Kind
	Index         int
	Action        string
	Record        content.Record
	Image         template.URL
	Items         []itemVM
	AddItemAction string
}

type itemVM struct {
	Index        int
	LabelField   string
	ValueField   string
	Label        string
	Value        string
	RemoveAction string
}

// Section returns an empty edit section container for kind.
func (r *Renderer) Section(kind content.Kind) (*html.Node, error) {
	return r.one("section", struct {
		Kind  content.Kind
		Title string
	}{kind, kind.Title()})
}

// Form renders the edit form for the record at index.
func (r *Renderer) Form(kind content.Kind, index int, rec content.Record) (*html.Node, error) {
	if rec == nil {
		rec = content.Record{}
	}
	vm := formVM{
		Kind:   kind,
		Index:  index,
		Action: FormAction(kind, index),
		Record: rec,
	}
	if fields := kind.ImageFields(); len(fields) > 0 {
		vm.Image = ImageURL(rec.Get(fields[0]))
	}
	if kind == content.Finances {
		s := content.SettingsFromRecord(rec)
		for i, it := range s.OtherItems {
			vm.Items = append(vm.Items, itemVM{
				Index:        i,
				LabelField:   content.OtherItemField(i, "label"),
				ValueField:   content.OtherItemField(i, "value"),
				Label:        it.Label,
				Value:        it.Value.String(),
				RemoveAction: ItemRemoveAction(i),
			})
		}
		vm.AddItemAction = ItemAddAction()
	}
	return r.one("form_"+kind.String(), vm)
}

type projectVM struct {
	Title       string
	Image       template.URL
	Description template.HTML
	Cost        string
}

type memberVM struct {
	Name, Role, Teams, Bio string
	Image                  template.URL
}

// Display renders the public markup for a list kind.
func (r *Renderer) Display(kind content.Kind, c content.Collection) ([]*html.Node, error) {
	switch kind {
	case content.Projects:
		vms := make([]projectVM, 0, len(c))
		for _, rec := range c {
			vms = append(vms, projectVM{
				Title:       rec.Get("title"),
				Image:       ImageURL(rec.Get("image")),
				Description: template.HTML(r.policy.Sanitize(rec.Get("description"))),
				Cost:        rec.Get("cost"),
			})
		}
		return r.nodes("display_projects", vms)
	case content.Members:
		vms := make([]memberVM, 0, len(c))
		for _, rec := range c {
			vms = append(vms, memberVM{
				Name:  rec.Get("name"),
				Role:  rec.Get("role"),
				Teams: rec.Get("teams"),
				Bio:   rec.Get("bio"),
				Image: ImageURL(rec.Get("image")),
			})
		}
		return r.nodes("display_members", vms)
	case content.Finances:
		var s content.Settings
		if len(c) > 0 {
			s = content.SettingsFromRecord(c[0])
		}
		return r.DisplaySettings(s)
	}
	return nil, fmt.Errorf("markup: no display template for kind %q", kind)
}

// DisplaySettings renders the public finances summary.
func (r *Renderer) DisplaySettings(s content.Settings) ([]*html.Node, error) {
	return r.nodes("display_finances", struct {
		S        content.Settings
		Slices   []content.Slice
		Image    template.URL
		Progress string
		Details  template.HTML
	}{
		S:        s,
		Slices:   s.Slices(),
		Image:    ImageURL(s.FTCImageData),
		Progress: strconv.FormatFloat(s.ProgressPercent(), 'f', -1, 64),
		Details:  RenderMarkdown(s.FTCDetails),
	})
}

func (r *Renderer) nodes(name string, data any) ([]*html.Node, error) {
	var b bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return nil, fmt.Errorf("markup: %s: %w", name, err)
	}
	return dom.ParseFragment(b.String())
}

func (r *Renderer) one(name string, data any) (*html.Node, error) {
	nodes, err := r.nodes(name, data)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return n, nil
		}
	}
	return nil, fmt.Errorf("markup: %s produced no element", name)
}
