package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrMissingFeature is returned by NewRenderer when the adapter lacks a device feature the backend draws with.
var ErrMissingFeature = errors.New("renderer: adapter lacks a required feature")

// requiredFeatures are requested on every device. Indirect records carry a non-zero first
// instance that selects the per-draw data.
var requiredFeatures = []wgpu.FeatureName{
	wgpu.FeatureNameIndirectFirstInstance,
}

// checkFeatures returns ErrMissingFeature for every entry of requiredFeatures that has reports false for.
func checkFeatures(has func(wgpu.FeatureName) bool) error {
	var errs []error
	for _, f := range requiredFeatures {
		if !has(f) {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingFeature, f))
		}
	}
	return errors.Join(errs...)
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	width, height int
	colorFormat   wgpu.TextureFormat
	clearColor    wgpu.Color

	colorTexture *wgpu.Texture
	colorView    *wgpu.TextureView
	msaaTexture  *wgpu.Texture
	msaaView     *wgpu.TextureView
	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView

	// Frame state between BeginFrame and EndFrame
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	sampleCount          MSAASampleCount
	resolver             ShaderResolver
}

// Renderer owns a wgpu device and an offscreen color and depth target, and opens one render
// pass per frame that the backend records command buffers into.
type Renderer interface {
	// Backend returns the buffer provider and command backend bound to this renderer's device.
	//
	// Returns:
	//   - RendererBackend: the backend
	Backend() RendererBackend

	// Device returns the wgpu device.
	Device() *wgpu.Device

	// Queue returns the device queue.
	Queue() *wgpu.Queue

	// Size returns the render target size in pixels.
	//
	// Returns:
	//   - int: the width
	//   - int: the height
	Size() (int, int)

	// Resize recreates the render targets at a new size. It must not be called inside a frame.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: an error if a target could not be created
	Resize(width, height int) error

	// TargetView returns the resolved color target of the last frame.
	TargetView() *wgpu.TextureView

	// BeginFrame opens a command encoder and a render pass over the targets and hands the pass to
	// the backend.
	//
	// Returns:
	//   - error: an error if a frame is already open or the encoder could not be created
	BeginFrame() error

	// EndFrame closes the pass and submits the frame.
	//
	// Returns:
	//   - error: an error if no frame is open or the encoder could not be finished
	EndFrame() error

	// Release destroys the backend, the targets and the device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a headless renderer: instance, adapter, device and offscreen targets.
//
// Parameters:
//   - options: a variadic list of RendererBuilderOption functions to configure the renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if no adapter or device is available, the adapter lacks a required
//     feature (ErrMissingFeature) or the targets could not be created
func NewRenderer(options ...RendererBuilderOption) (Renderer, error) {
	runtime.LockOSThread()
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: BackendTypeWGPU,
		width:       1280,
		height:      720,
		colorFormat: wgpu.TextureFormatBGRA8Unorm,
		clearColor:  wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		sampleCount: MSAAOff,
	}
	for _, opt := range options {
		opt(r)
	}
	if r.width <= 0 || r.height <= 0 {
		panic("renderer: NewRenderer requires a positive target size")
	}

	r.instance = wgpu.CreateInstance(nil)
	a, err := r.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: r.forceFallbackAdapter,
	})
	if err != nil {
		r.instance.Release()
		return nil, fmt.Errorf("renderer: request adapter: %w", err)
	}
	r.adapter = a

	if err := checkFeatures(a.HasFeature); err != nil {
		a.Release()
		r.instance.Release()
		return nil, err
	}
	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            "Main Device",
		RequiredFeatures: requiredFeatures,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		a.Release()
		r.instance.Release()
		return nil, fmt.Errorf("renderer: request device: %w", err)
	}
	r.device = d
	r.queue = d.GetQueue()

	switch r.backendType {
	case BackendTypeWGPU:
		r.backend = NewWGPUBackend(r.device, r.queue,
			WithColorFormat(r.colorFormat),
			WithSampleCount(r.sampleCount),
			WithShaderResolver(r.resolver),
		)
	}

	if err := r.createTargets(); err != nil {
		r.Release()
		return nil, err
	}
	common.Logger().Info("renderer created", "width", r.width, "height", r.height, "msaa", uint32(r.sampleCount))
	return r, nil
}

func (r *renderer) Backend() RendererBackend {
	return r.backend
}

func (r *renderer) Device() *wgpu.Device {
	return r.device
}

func (r *renderer) Queue() *wgpu.Queue {
	return r.queue
}

func (r *renderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *renderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		panic("renderer: Resize requires a positive size")
	}
	r.mu.Lock()
	if r.frameEncoder != nil {
		r.mu.Unlock()
		return errors.New("renderer: Resize called inside a frame")
	}
	r.width, r.height = width, height
	r.mu.Unlock()

	r.releaseTargets()
	return r.createTargets()
}

func (r *renderer) TargetView() *wgpu.TextureView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.colorView
}

func (r *renderer) BeginFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frameEncoder != nil {
		return errors.New("renderer: previous frame was not ended")
	}

	encoder, err := r.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("renderer: create command encoder: %w", err)
	}

	// With MSAA the multisampled texture is the attachment and the color target is the resolve
	// target. Without it the color target is the attachment.
	color := wgpu.RenderPassColorAttachment{
		View:       r.colorView,
		LoadOp:     wgpu.LoadOpClear,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: r.clearColor,
	}
	if r.sampleCount > 1 {
		color.View = r.msaaView
		color.ResolveTarget = r.colorView
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label:            "Frame Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{color},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            r.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})

	r.frameEncoder = encoder
	r.framePass = pass
	r.backend.BeginPass(pass)
	return nil
}

func (r *renderer) EndFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frameEncoder == nil {
		return errors.New("renderer: EndFrame called without BeginFrame")
	}
	r.backend.EndPass()
	r.framePass.End()
	r.framePass.Release()
	r.framePass = nil

	commandBuffer, err := r.frameEncoder.Finish(nil)
	r.frameEncoder.Release()
	r.frameEncoder = nil
	if err != nil {
		return fmt.Errorf("renderer: finish frame: %w", err)
	}
	r.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (r *renderer) Release() {
	if r.backend != nil {
		if err := r.backend.Destroy(); err != nil {
			common.Logger().Warn("renderer: backend destroy failed", "error", err)
		}
	}
	r.releaseTargets()
	if r.queue != nil {
		r.queue.Release()
	}
	if r.device != nil {
		r.device.Release()
	}
	if r.adapter != nil {
		r.adapter.Release()
	}
	if r.instance != nil {
		r.instance.Release()
	}
}

func (r *renderer) createTargets() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	r.colorTexture, r.colorView, err = r.createTarget("Color Target", r.colorFormat, 1,
		wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopySrc)
	if err != nil {
		return err
	}
	if r.sampleCount > 1 {
		r.msaaTexture, r.msaaView, err = r.createTarget("MSAA Target", r.colorFormat, uint32(r.sampleCount),
			wgpu.TextureUsageRenderAttachment)
		if err != nil {
			return err
		}
	}
	r.depthTexture, r.depthView, err = r.createTarget("Depth Target", wgpu.TextureFormatDepth24Plus, uint32(r.sampleCount),
		wgpu.TextureUsageRenderAttachment)
	return err
}

func (r *renderer) createTarget(label string, format wgpu.TextureFormat, samples uint32, usage wgpu.TextureUsage) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := r.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              uint32(r.width),
			Height:             uint32(r.height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("renderer: create %s: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("renderer: create %s view: %w", label, err)
	}
	return tex, view, nil
}

func (r *renderer) releaseTargets() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, v := range []**wgpu.TextureView{&r.colorView, &r.msaaView, &r.depthView} {
		if *v != nil {
			(*v).Release()
			*v = nil
		}
	}
	for _, t := range []**wgpu.Texture{&r.colorTexture, &r.msaaTexture, &r.depthTexture} {
		if *t != nil {
			(*t).Release()
			*t = nil
		}
	}
}
