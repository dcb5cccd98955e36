package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

type LabelFormat string

const (
	LabelFormatZPL    LabelFormat = "zpl"
	LabelFormatTSPL   LabelFormat = "tspl"
	LabelFormatESCPOS LabelFormat = "escpos"
)

func (f LabelFormat) IsValid() bool {
	switch f {
	case LabelFormatZPL, LabelFormatTSPL, LabelFormatESCPOS:
		return true
	}
	return false
}

const (
	queueNumberScale  = 4
	footerLayout      = "02/01/2006 15.04"
	destinationScale  = 1
	barcodeModule     = 2
	barcodeHeightDots = 100
)

var ErrUnknownJob = errors.New("unknown job variant")

type TicketLayout struct {
	FacilityName string
	ServiceTitle string
	WaitingText  string
	LineWidth    int
}

func DefaultTicketLayout() TicketLayout {
	return TicketLayout{
		FacilityName: "RSUD dr. Soeratno Gemolong",
		ServiceTitle: "Anjungan Pendaftaran Mandiri",
		WaitingText:  "Silakan tunggu panggilan Anda.",
		LineWidth:    defaultLineWidth,
	}
}

type RendererOptions struct {
	Ticket      TicketLayout
	LabelFormat LabelFormat
	LabelLayout *LabelLayout
	// MaxRasterDots bounds embedded barcode images for the escpos label form.
	MaxRasterDots int
	Encoder       BarcodeEncoder
	Location      *time.Location
	Now           func() time.Time
	Logger        *zap.Logger
}

// Renderer turns jobs into printer-native byte streams. It performs no I/O.
type Renderer struct {
	ticket      TicketLayout
	labelFormat LabelFormat
	layout      *LabelLayout
	maxDots     int
	encoder     BarcodeEncoder
	loc         *time.Location
	now         func() time.Time
	zpl         *ZPLGenerator
	tspl        *TSPL2Generator
	logger      *zap.Logger
}

func NewRenderer(opts RendererOptions) *Renderer {
	if opts.Ticket == (TicketLayout{}) {
		opts.Ticket = DefaultTicketLayout()
	}
	if opts.Ticket.LineWidth <= 0 {
		opts.Ticket.LineWidth = defaultLineWidth
	}
	if !opts.LabelFormat.IsValid() {
		opts.LabelFormat = LabelFormatZPL
	}
	if opts.LabelLayout == nil {
		opts.LabelLayout = PatientLabelLayout()
	}
	if opts.Encoder == nil {
		opts.Encoder = NewCode39Encoder()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Renderer{
		ticket:      opts.Ticket,
		labelFormat: opts.LabelFormat,
		layout:      opts.LabelLayout,
		maxDots:     opts.MaxRasterDots,
		encoder:     opts.Encoder,
		loc:         opts.Location,
		now:         opts.Now,
		zpl:         NewZPLGenerator(),
		tspl:        NewTSPL2Generator(),
		logger:      opts.Logger,
	}
}

func (r *Renderer) LabelFormat() LabelFormat {
	return r.labelFormat
}

func (r *Renderer) Render(job Job) ([]byte, error) {
	now := r.now().In(r.loc)
	switch j := job.(type) {
	case *TicketJob:
		return r.renderTicket(j, now), nil
	case *ApmJob:
		return r.renderApm(j, now), nil
	case *LabelJob:
		return r.renderLabel(j, now)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownJob, job)
	}
}

func (r *Renderer) renderTicket(j *TicketJob, now time.Time) []byte {
	b := NewESCPOSBuffer(r.ticket.LineWidth, 0)

	b.Align(AlignCenter)
	b.Bold(true).Println(r.ticket.FacilityName).Bold(false)
	b.DrawLine()
	b.Println("NOMOR ANTRIAN")
	b.TextSize(queueNumberScale, queueNumberScale).Println(j.QueueNumber.String())
	b.TextSize(0, 0)
	b.DrawLine()
	b.TextSize(destinationScale, destinationScale)
	b.Println(j.DestinationLabel() + ":")
	b.Bold(true).Println(strings.ToUpper(j.Destination)).Bold(false)
	b.TextSize(0, 0)
	b.DrawLine()
	b.Println(r.ticket.WaitingText)
	b.Println(now.Format(footerLayout))
	b.NewLine()
	b.Cut()

	return b.Bytes()
}

func (r *Renderer) renderApm(j *ApmJob, now time.Time) []byte {
	b := NewESCPOSBuffer(r.ticket.LineWidth, 0)

	b.Align(AlignCenter)
	b.Bold(true).Println(r.ticket.FacilityName)
	b.Println(r.ticket.ServiceTitle).Bold(false)
	b.DrawLine()
	b.Println("NOMOR ANTRIAN")
	b.TextSize(queueNumberScale, queueNumberScale).Println(j.QueueNumber.String())
	b.TextSize(0, 0)
	b.DrawLine()
	b.Bold(true).Println(strings.ToUpper(j.PoliName)).Bold(false)
	b.DrawLine()
	if line := j.SecondaryLine(); line != "" {
		b.Println("No. Antrian Poli: " + line)
	}
	b.Println(r.ticket.WaitingText)
	b.Println(now.Format(footerLayout))
	b.NewLine()
	b.Cut()

	return b.Bytes()
}

func (r *Renderer) renderLabel(j *LabelJob, now time.Time) ([]byte, error) {
	age := CalculateAge(j.Patient.BirthDate, now)
	vars := PatientLabelVariables(j.Patient, age)

	switch r.labelFormat {
	case LabelFormatTSPL:
		out, err := r.tspl.Generate(r.layout, vars)
		if err != nil {
			return nil, fmt.Errorf("tspl label: %w", err)
		}
		return []byte(out), nil
	case LabelFormatESCPOS:
		return r.renderESCPOSLabel(vars), nil
	default:
		out, err := r.zpl.Generate(r.layout, vars)
		if err != nil {
			return nil, fmt.Errorf("zpl label: %w", err)
		}
		return []byte(out), nil
	}
}

func (r *Renderer) renderESCPOSLabel(vars map[string]string) []byte {
	b := NewESCPOSBuffer(r.ticket.LineWidth, r.maxDots)

	b.Align(AlignLeft)
	b.TextSize(destinationScale, destinationScale)
	b.Bold(true)
	b.Println(fmt.Sprintf("%s (%s)", vars[VarName], vars[VarSex]))
	b.NewLine()
	b.Println(fmt.Sprintf("RM : %s Tgl Lhr %s", vars[VarMRN], vars[VarBirthDate]))
	b.Println("NO KTP : " + vars[VarNIK])
	b.Println(vars[VarAge])
	b.TextSize(0, 0)
	b.Println(vars[VarAddress])
	b.Bold(false)
	b.NewLine()

	if err := r.embedBarcode(b, vars[VarMRN]); err != nil {
		r.logger.Warn("barcode image rejected, printing MRN as text",
			zap.String("mrn", vars[VarMRN]),
			zap.Error(err),
		)
		b.Align(AlignCenter)
		b.Println(vars[VarMRN])
	}

	b.NewLine()
	b.Cut()
	return b.Bytes()
}

func (r *Renderer) embedBarcode(b *ESCPOSBuffer, mrn string) error {
	img, err := r.encoder.Encode(mrn, barcodeModule, barcodeHeightDots)
	if err != nil {
		return err
	}
	b.Align(AlignCenter)
	return b.PrintImage(img)
}
