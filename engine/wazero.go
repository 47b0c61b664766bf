package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	guestmem "github.com/wippyai/wasm-guestmem"
	"github.com/wippyai/wasm-guestmem/errors"
)

// Engine wraps a wazero runtime that compiles and instantiates guest modules.
type Engine struct {
	runtime wazero.Runtime
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32
}

// New creates a new wazero-based engine
func New(ctx context.Context) (*Engine, error) {
	return NewWithConfig(ctx, nil)
}

// NewWithConfig creates a new engine with custom configuration
func NewWithConfig(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()

	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	return &Engine{runtime: runtime}, nil
}

// Load compiles a core module from its binary.
func (e *Engine) Load(ctx context.Context, wasmBytes []byte) (*Module, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Load("compile module", err)
	}
	return &Module{engine: e, compiled: compiled}, nil
}

func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Module is a compiled WASM module
type Module struct {
	engine   *Engine
	compiled wazero.CompiledModule
}

func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	// Anonymous name so the same module can be instantiated in parallel.
	modConfig := wazero.NewModuleConfig().WithName("")

	instance, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, modConfig)
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	inst := &Instance{
		instance:  instance,
		funcCache: make(map[string]api.Function),
	}

	// Cache memory
	if mem := instance.Memory(); mem != nil {
		inst.memory = &wazeroMemory{mem: mem}
	}

	// Cache allocator - try standard cabi_realloc first, then fallbacks
	allocFnDef := instance.ExportedFunctionDefinitions()[CabiRealloc]
	if allocFnDef == nil {
		allocFnDef = instance.ExportedFunctionDefinitions()[legacyRealloc]
	}
	if allocFnDef == nil {
		allocFnDef = instance.ExportedFunctionDefinitions()[legacyAlloc]
	}
	if allocFnDef == nil {
		allocFnDef = instance.ExportedFunctionDefinitions()[simpleAlloc]
	}

	var allocFn api.Function
	var isSimpleAlloc bool
	if allocFnDef != nil {
		allocFn = instance.ExportedFunction(allocFnDef.Name())
		isSimpleAlloc = len(allocFnDef.ParamTypes()) < 4
	}

	// Cache free function
	var freeFn api.Function
	freeName := ""
	if fn := instance.ExportedFunction(CabiFree); fn != nil {
		freeFn, freeName = fn, CabiFree
	} else if fn := instance.ExportedFunction(legacyDealloc); fn != nil {
		freeFn, freeName = fn, legacyDealloc
	} else if fn := instance.ExportedFunction(simpleFree); fn != nil {
		freeFn, freeName = fn, simpleFree
	}

	if allocFnDef != nil {
		Logger().Debug("guest allocator discovered",
			zap.String("alloc", allocFnDef.Name()),
			zap.String("free", freeName))
	}

	inst.alloc = &wazeroAllocator{
		allocFn:       allocFn,
		freeFn:        freeFn,
		stackBuf:      make([]uint64, 4),
		isSimpleAlloc: isSimpleAlloc,
	}

	return inst, nil
}

func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// Instance is a running module instance with exports.
// It is NOT thread-safe and should be used by a single goroutine.
type Instance struct {
	instance  api.Module
	memory    *wazeroMemory
	alloc     *wazeroAllocator
	funcCache map[string]api.Function
	cacheMu   sync.RWMutex
}

// Memory returns the instance's exported linear memory, or nil if the
// module exports none.
func (i *Instance) Memory() guestmem.Memory {
	if i.memory == nil {
		return nil
	}
	return i.memory
}

// Allocator returns the guest-exported allocator. Alloc fails if the module
// exports no recognized allocation function.
func (i *Instance) Allocator() guestmem.Allocator {
	return i.alloc
}

// Call invokes an exported function with raw stack values.
func (i *Instance) Call(ctx context.Context, funcName string, params ...uint64) ([]uint64, error) {
	i.cacheMu.RLock()
	fn, ok := i.funcCache[funcName]
	i.cacheMu.RUnlock()

	if !ok {
		fn = i.instance.ExportedFunction(funcName)
		if fn == nil {
			return nil, errors.NotFound(errors.PhaseRuntime, "function", funcName)
		}
		i.cacheMu.Lock()
		i.funcCache[funcName] = fn
		i.cacheMu.Unlock()
	}

	// Guest code invoked during the call allocates under the caller's context.
	i.alloc.setContext(ctx)

	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindInvalidData, err, "call "+funcName)
	}
	return results, nil
}

// ExportedFunctions returns the names of all exported functions, sorted.
func (i *Instance) ExportedFunctions() []string {
	defs := i.instance.ExportedFunctionDefinitions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (i *Instance) Close(ctx context.Context) error {
	var firstErr error
	if i.instance != nil {
		if err := i.instance.Close(ctx); err != nil {
			firstErr = err
		}
		i.instance = nil
	}
	// Clear references to help GC
	i.funcCache = nil
	i.memory = nil
	i.alloc = nil
	return firstErr
}

// wazeroAllocator implements guestmem.Allocator using guest-exported functions
type wazeroAllocator struct {
	allocFn       api.Function
	freeFn        api.Function
	currentCtx    context.Context
	stackBuf      []uint64
	stackMutex    sync.Mutex
	isSimpleAlloc bool
}

func (a *wazeroAllocator) setContext(ctx context.Context) {
	a.stackMutex.Lock()
	defer a.stackMutex.Unlock()
	a.currentCtx = ctx
}

func (a *wazeroAllocator) Alloc(size, align uint32) (uint32, error) {
	if a.allocFn == nil {
		return 0, errors.NotFound(errors.PhaseAlloc, "guest allocator export", CabiRealloc)
	}

	a.stackMutex.Lock()
	defer a.stackMutex.Unlock()

	ctx := a.currentCtx
	if ctx == nil {
		ctx = context.Background()
	}

	if a.isSimpleAlloc {
		a.stackBuf[0] = uint64(size)
		err := a.allocFn.CallWithStack(ctx, a.stackBuf[:1])
		if err != nil {
			return 0, errors.Wrap(errors.PhaseAlloc, errors.KindAllocation, err, "guest alloc")
		}
		return uint32(a.stackBuf[0]), nil
	}
	a.stackBuf[0] = 0
	a.stackBuf[1] = 0
	a.stackBuf[2] = uint64(align)
	a.stackBuf[3] = uint64(size)
	err := a.allocFn.CallWithStack(ctx, a.stackBuf[:4])
	if err != nil {
		return 0, errors.Wrap(errors.PhaseAlloc, errors.KindAllocation, err, "guest realloc")
	}
	return uint32(a.stackBuf[0]), nil
}

func (a *wazeroAllocator) Free(ptr, size, align uint32) {
	if a.freeFn != nil && ptr != 0 {
		a.stackMutex.Lock()
		defer a.stackMutex.Unlock()

		ctx := a.currentCtx
		if ctx == nil {
			ctx = context.Background()
		}

		a.stackBuf[0] = uint64(ptr)
		a.stackBuf[1] = uint64(size)
		a.stackBuf[2] = uint64(align)
		if err := a.freeFn.CallWithStack(ctx, a.stackBuf[:3]); err != nil {
			Logger().Warn("Free: guest deallocation failed",
				zap.Uint32("ptr", ptr),
				zap.Uint32("size", size),
				zap.Error(err))
		}
	}
}

// wazeroMemory wraps wazero memory to implement guestmem.Memory
type wazeroMemory struct {
	mem api.Memory
}

func (m *wazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.MemoryAccess(errors.PhaseRead, offset, length)
	}
	return data, nil
}

func (m *wazeroMemory) Write(offset uint32, data []byte) error {
	ok := m.mem.Write(offset, data)
	if !ok {
		return errors.MemoryAccess(errors.PhaseWrite, offset, uint32(len(data)))
	}
	return nil
}

func (m *wazeroMemory) ReadU8(offset uint32) (uint8, error) {
	data, err := m.Read(offset, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

func (m *wazeroMemory) ReadU16(offset uint32) (uint16, error) {
	data, err := m.Read(offset, 2)
	if err != nil {
		return 0, err
	}
	return uint16(data[0]) | uint16(data[1])<<8, nil
}

func (m *wazeroMemory) ReadU32(offset uint32) (uint32, error) {
	val, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.MemoryAccess(errors.PhaseRead, offset, 4)
	}
	return val, nil
}

func (m *wazeroMemory) ReadU64(offset uint32) (uint64, error) {
	val, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, errors.MemoryAccess(errors.PhaseRead, offset, 8)
	}
	return val, nil
}

func (m *wazeroMemory) WriteU8(offset uint32, value uint8) error {
	return m.Write(offset, []byte{value})
}

func (m *wazeroMemory) WriteU16(offset uint32, value uint16) error {
	return m.Write(offset, []byte{byte(value), byte(value >> 8)})
}

func (m *wazeroMemory) WriteU32(offset uint32, value uint32) error {
	ok := m.mem.WriteUint32Le(offset, value)
	if !ok {
		return errors.MemoryAccess(errors.PhaseWrite, offset, 4)
	}
	return nil
}

func (m *wazeroMemory) WriteU64(offset uint32, value uint64) error {
	ok := m.mem.WriteUint64Le(offset, value)
	if !ok {
		return errors.MemoryAccess(errors.PhaseWrite, offset, 8)
	}
	return nil
}

func (m *wazeroMemory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

// Compile-time check that wazeroMemory implements guestmem.Memory and MemorySizer
var _ guestmem.Memory = (*wazeroMemory)(nil)
var _ guestmem.MemorySizer = (*wazeroMemory)(nil)

// Compile-time check that wazeroAllocator implements guestmem.Allocator
var _ guestmem.Allocator = (*wazeroAllocator)(nil)
