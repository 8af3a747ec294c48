package pgcrypt

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/zoobzio/sentinel"
)

func init() {
	// Register compound tags with sentinel
	sentinel.Tag("store.encrypt")
	sentinel.Tag("load.decrypt")
}

// Processor provides context-aware serialization with transparent column
// encryption. Use Store for egress to storage and Load for ingress from
// storage.
//
// Processors are safe for concurrent use. SetField may be called at any time
// to register or replace field descriptors, e.g. after a key change.
//
// Validation occurs automatically on first operation. Configure all required
// fields before the first call to Store or Load.
type Processor[T Cloner[T]] struct {
	codec Codec

	// Mutable configuration protected by mu
	mu     sync.RWMutex
	fields map[CipherAlgo]*Field

	// Validation state (runs once on first operation)
	validateOnce sync.Once
	validateErr  error

	// Per-context field plans (immutable after construction)
	storePlans storePlan
	loadPlans  loadPlan

	// Type metadata
	typeName string
}

// storePlan holds field plans for store context actions.
type storePlan struct {
	encryptFields []processorFieldPlan
}

// loadPlan holds field plans for load context actions.
type loadPlan struct {
	decryptFields []processorFieldPlan
}

// processorFieldPlan describes how to transform a single field.
type processorFieldPlan struct {
	index      []int      // reflect.Value.FieldByIndex access path
	name       string     // field name for error messages
	algo       CipherAlgo // cipher from the tag value ("bf", "aes")
	isBytes    bool       // true if field is []byte, false if string
	ptrIndices []int      // indices where pointer dereference is needed
	isSlice    bool       // true if field is []string
	isMap      bool       // true if field is map[K]string
}

// ProcessorOption configures a Processor at construction time.
type ProcessorOption func(*processorOptions)

type processorOptions struct {
	fields map[CipherAlgo]*Field
}

// WithField registers a field descriptor for the given cipher.
func WithField(algo CipherAlgo, f *Field) ProcessorOption {
	return func(o *processorOptions) {
		o.fields[algo] = f
	}
}

// WithKey registers a field descriptor built from a bare key for the given
// cipher. Shorthand for WithField(algo, NewField(FieldConfig{Cipher: algo, Key: key})).
func WithKey(algo CipherAlgo, key []byte) ProcessorOption {
	return WithField(algo, NewField(FieldConfig{Cipher: algo, Key: key}))
}

// NewProcessor creates a new Processor for type T.
//
// Fields must be configured via options or SetField before using Store/Load
// operations on columns with encryption tags. Use Validate() to check that
// all required fields are configured.
func NewProcessor[T Cloner[T]](codec Codec, opts ...ProcessorOption) (*Processor[T], error) {
	// Get or build cached field plans
	plans, err := getOrBuildPlans[T]()
	if err != nil {
		return nil, err
	}

	options := processorOptions{fields: make(map[CipherAlgo]*Field)}
	for _, opt := range opts {
		opt(&options)
	}

	p := &Processor[T]{
		codec:      codec,
		fields:     options.fields,
		typeName:   plans.typeName,
		storePlans: plans.store,
		loadPlans:  plans.load,
	}

	emitProcessorCreated(context.Background(), codec.ContentType(), plans.typeName)
	return p, nil
}

// SetField registers a field descriptor for the given cipher.
// Returns the processor for chaining. Safe for concurrent use.
func (p *Processor[T]) SetField(algo CipherAlgo, f *Field) *Processor[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fields[algo] = f
	return p
}

// Validate checks that all required fields are configured. Returns an error
// wrapping ErrMissingField if any tagged column's cipher has no registered
// field descriptor.
//
// Validation also runs automatically on first operation. Calling Validate
// explicitly allows catching configuration errors at startup.
func (p *Processor[T]) Validate() error {
	return p.ensureValidated()
}

// ensureValidated runs validation once and caches the result.
func (p *Processor[T]) ensureValidated() error {
	p.validateOnce.Do(func() {
		p.mu.RLock()
		defer p.mu.RUnlock()
		p.validateErr = p.validateFields()
	})
	return p.validateErr
}

// validateFields ensures all required field descriptors are registered.
// Skips validation where the type implements override interfaces.
func (p *Processor[T]) validateFields() error {
	var zero T
	_, hasEncryptable := any(&zero).(Encryptable)
	_, hasDecryptable := any(&zero).(Decryptable)

	if !hasEncryptable {
		for _, plan := range p.storePlans.encryptFields {
			if _, ok := p.fields[plan.algo]; !ok {
				return newConfigError(ErrMissingField, string(plan.algo), plan.name)
			}
		}
	}

	if !hasDecryptable {
		for _, plan := range p.loadPlans.decryptFields {
			if _, ok := p.fields[plan.algo]; !ok {
				return newConfigError(ErrMissingField, string(plan.algo), plan.name)
			}
		}
	}

	return nil
}

// typeFieldPlans caches the per-type result of tag scanning.
type typeFieldPlans struct {
	typeName string
	store    storePlan
	load     loadPlan
}

var (
	planCache   = make(map[reflect.Type]*typeFieldPlans)
	planCacheMu sync.RWMutex
)

// getOrBuildPlans returns cached field plans for T, scanning tags once.
func getOrBuildPlans[T Cloner[T]]() (*typeFieldPlans, error) {
	typ := reflect.TypeFor[T]()

	planCacheMu.RLock()
	if cached, ok := planCache[typ]; ok {
		planCacheMu.RUnlock()
		return cached, nil
	}
	planCacheMu.RUnlock()

	planCacheMu.Lock()
	defer planCacheMu.Unlock()

	if cached, ok := planCache[typ]; ok {
		return cached, nil
	}

	plans, err := buildFieldPlans[T]()
	if err != nil {
		return nil, err
	}

	planCache[typ] = plans
	return plans, nil
}

// buildFieldPlans creates field plans for type T by scanning struct tags.
func buildFieldPlans[T Cloner[T]]() (*typeFieldPlans, error) {
	spec := sentinel.Scan[T]()
	plans := &typeFieldPlans{
		typeName: spec.TypeName,
	}

	if err := buildFieldPlansRecursive(plans, spec, nil, nil, ""); err != nil {
		return nil, err
	}

	return plans, nil
}

// buildFieldPlansRecursive recursively processes fields and nested structs.
func buildFieldPlansRecursive(plans *typeFieldPlans, spec sentinel.Metadata, parentIndex, ptrIndices []int, namePrefix string) error {
	for _, field := range spec.Fields {
		fullIndex := append(append([]int{}, parentIndex...), field.Index...)
		fullName := field.Name
		if namePrefix != "" {
			fullName = namePrefix + "." + field.Name
		}

		// Handle nested structs
		if field.Kind == sentinel.KindStruct {
			nestedSpec := scanNestedType(field.ReflectType)
			if nestedSpec != nil {
				if err := buildFieldPlansRecursive(plans, *nestedSpec, fullIndex, ptrIndices, fullName); err != nil {
					return err
				}
			}
			continue
		}

		// Handle pointer to struct
		if field.Kind == sentinel.KindPointer && field.ReflectType.Elem().Kind() == reflect.Struct {
			nestedSpec := scanNestedType(field.ReflectType.Elem())
			if nestedSpec != nil {
				newPtrIndices := append(append([]int{}, ptrIndices...), len(fullIndex)-1)
				if err := buildFieldPlansRecursive(plans, *nestedSpec, fullIndex, newPtrIndices, fullName); err != nil {
					return err
				}
			}
			continue
		}

		// Check underlying kind for string, []byte, []string, or map[K]string fields
		isString := field.ReflectType.Kind() == reflect.String
		isBytes := field.ReflectType.Kind() == reflect.Slice &&
			field.ReflectType.Elem().Kind() == reflect.Uint8
		isStringSlice := field.ReflectType.Kind() == reflect.Slice &&
			field.ReflectType.Elem().Kind() == reflect.String
		isStringMap := field.ReflectType.Kind() == reflect.Map &&
			field.ReflectType.Elem().Kind() == reflect.String

		if !isString && !isBytes && !isStringSlice && !isStringMap {
			continue
		}

		basePlan := processorFieldPlan{
			index:      fullIndex,
			name:       fullName,
			isBytes:    isBytes,
			ptrIndices: ptrIndices,
			isSlice:    isStringSlice,
			isMap:      isStringMap,
		}

		if val, ok := field.Tags["store.encrypt"]; ok {
			if !IsValidCipherAlgo(CipherAlgo(val)) {
				return fmt.Errorf("%w: unknown cipher %q for field %s", ErrInvalidTag, val, fullName)
			}
			plan := basePlan
			plan.algo = CipherAlgo(val)
			plans.store.encryptFields = append(plans.store.encryptFields, plan)
		}

		if val, ok := field.Tags["load.decrypt"]; ok {
			if !IsValidCipherAlgo(CipherAlgo(val)) {
				return fmt.Errorf("%w: unknown cipher %q for field %s", ErrInvalidTag, val, fullName)
			}
			plan := basePlan
			plan.algo = CipherAlgo(val)
			plans.load.decryptFields = append(plans.load.decryptFields, plan)
		}
	}

	return nil
}

// scanNestedType scans a nested struct type and returns its metadata.
func scanNestedType(rt reflect.Type) *sentinel.Metadata {
	if spec, ok := sentinel.Lookup(rt.String()); ok {
		return &spec
	}

	if rt.Kind() != reflect.Struct {
		return nil
	}

	spec := sentinel.Metadata{
		TypeName:    rt.Name(),
		PackageName: rt.PkgPath(),
		Fields:      make([]sentinel.FieldMetadata, 0, rt.NumField()),
	}

	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}

		fm := sentinel.FieldMetadata{
			Name:        sf.Name,
			Type:        sf.Type.String(),
			ReflectType: sf.Type,
			Index:       sf.Index,
			Tags:        parseContextTags(sf.Tag),
		}

		switch sf.Type.Kind() {
		case reflect.Struct:
			fm.Kind = sentinel.KindStruct
		case reflect.Ptr:
			fm.Kind = sentinel.KindPointer
		case reflect.Slice, reflect.Array:
			fm.Kind = sentinel.KindSlice
		case reflect.Map:
			fm.Kind = sentinel.KindMap
		case reflect.Interface:
			fm.Kind = sentinel.KindInterface
		default:
			fm.Kind = sentinel.KindScalar
		}

		spec.Fields = append(spec.Fields, fm)
	}

	return &spec
}

// parseContextTags extracts context.action tags from a struct tag.
func parseContextTags(tag reflect.StructTag) map[string]string {
	tags := make(map[string]string)
	for _, ca := range []string{"store.encrypt", "load.decrypt"} {
		if val, ok := tag.Lookup(ca); ok {
			tags[ca] = val
		}
	}
	return tags
}

// Store applies store context actions (encrypt) and marshals the result.
// Use for data going to storage (database, cache). The original object is
// never mutated; encryption runs on a clone.
func (p *Processor[T]) Store(ctx context.Context, obj *T) ([]byte, error) {
	if err := p.ensureValidated(); err != nil {
		return nil, err
	}

	start := time.Now()
	emitStoreStart(ctx, p.codec.ContentType(), p.typeName)

	var retErr error
	var retData []byte
	defer func() {
		emitStoreComplete(ctx, p.codec.ContentType(), p.typeName,
			len(retData), time.Since(start), len(p.storePlans.encryptFields), retErr)
	}()

	if obj == nil {
		retData, retErr = p.codec.Marshal(nil)
		return retData, retErr
	}

	// Clone to avoid mutating original
	clone := (*obj).Clone()

	p.mu.RLock()
	defer p.mu.RUnlock()

	// Check for override interface
	if e, ok := any(&clone).(Encryptable); ok {
		if err := e.Encrypt(p.fields); err != nil {
			retErr = fmt.Errorf("encrypt: %w", err)
			return nil, retErr
		}
		retData, retErr = p.codec.Marshal(&clone)
		return retData, retErr
	}

	// Apply encrypt actions via reflection
	if err := p.applyEncrypt(&clone); err != nil {
		retErr = err
		return nil, retErr
	}

	retData, retErr = p.codec.Marshal(&clone)
	return retData, retErr
}

// Load unmarshals data and applies load context actions (decrypt).
// Use for data coming from storage (database, cache).
func (p *Processor[T]) Load(ctx context.Context, data []byte) (*T, error) {
	if err := p.ensureValidated(); err != nil {
		return nil, err
	}

	start := time.Now()
	emitLoadStart(ctx, p.codec.ContentType(), p.typeName)

	var retErr error
	defer func() {
		emitLoadComplete(ctx, p.codec.ContentType(), p.typeName,
			time.Since(start), len(p.loadPlans.decryptFields), retErr)
	}()

	var obj T
	if err := p.codec.Unmarshal(data, &obj); err != nil {
		retErr = fmt.Errorf("unmarshal: %w", err)
		return nil, retErr
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	// Check for override interface
	if d, ok := any(&obj).(Decryptable); ok {
		if err := d.Decrypt(p.fields); err != nil {
			retErr = fmt.Errorf("decrypt: %w", err)
			return nil, retErr
		}
		return &obj, nil
	}

	// Apply decrypt actions via reflection
	if err := p.applyDecrypt(&obj); err != nil {
		retErr = err
		return nil, retErr
	}

	return &obj, nil
}

// applyEncrypt encrypts tagged columns to envelope text via reflection.
func (p *Processor[T]) applyEncrypt(obj *T) error {
	rv := reflect.ValueOf(obj).Elem()

	for _, plan := range p.storePlans.encryptFields {
		field := p.fields[plan.algo]

		err := applyToPlan(rv, plan,
			func(s string) (string, error) {
				return field.Encrypt([]byte(s))
			},
			func(b []byte) ([]byte, error) {
				text, err := field.Encrypt(b)
				return []byte(text), err
			},
		)
		if err != nil {
			return newTransformError(ErrEncrypt, "encrypt", plan.name, err)
		}
	}

	return nil
}

// applyDecrypt decrypts tagged columns via reflection. The envelope header
// selects the cipher when a field for that algorithm is registered;
// otherwise the tag's cipher applies.
func (p *Processor[T]) applyDecrypt(obj *T) error {
	rv := reflect.ValueOf(obj).Elem()

	for _, plan := range p.loadPlans.decryptFields {
		resolve := func(text string) *Field {
			field := p.fields[plan.algo]
			if h, _ := Unwrap(text); h.Cipher != "" {
				if alt, ok := p.fields[h.Cipher]; ok {
					field = alt
				}
			}
			return field
		}

		err := applyToPlan(rv, plan,
			func(s string) (string, error) {
				return resolve(s).DecryptText(s)
			},
			func(b []byte) ([]byte, error) {
				text := string(b)
				return resolve(text).Decrypt(text)
			},
		)
		if err != nil {
			return newTransformError(ErrDecrypt, "decrypt", plan.name, err)
		}
	}

	return nil
}

// applyToPlan applies str to every string value selected by plan, or bin to
// a []byte column.
func applyToPlan(rv reflect.Value, plan processorFieldPlan, str func(string) (string, error), bin func([]byte) ([]byte, error)) error {
	field, ok := resolvePlanField(rv, plan)
	if !ok {
		return nil
	}

	switch {
	case plan.isSlice:
		for i := 0; i < field.Len(); i++ {
			elem := field.Index(i)
			if !elem.CanSet() {
				continue
			}
			out, err := str(elem.String())
			if err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
			elem.SetString(out)
		}
	case plan.isMap:
		iter := field.MapRange()
		for iter.Next() {
			k, v := iter.Key(), iter.Value()
			out, err := str(v.String())
			if err != nil {
				return fmt.Errorf("key %v: %w", k.Interface(), err)
			}
			field.SetMapIndex(k, reflect.ValueOf(out))
		}
	case plan.isBytes:
		if !field.CanSet() {
			return nil
		}
		out, err := bin(field.Bytes())
		if err != nil {
			return err
		}
		field.SetBytes(out)
	default:
		if !field.CanSet() {
			return nil
		}
		out, err := str(field.String())
		if err != nil {
			return err
		}
		field.SetString(out)
	}

	return nil
}

// resolvePlanField navigates a field path, dereferencing pointers as needed.
func resolvePlanField(rv reflect.Value, plan processorFieldPlan) (reflect.Value, bool) {
	if len(plan.ptrIndices) == 0 {
		return rv.FieldByIndex(plan.index), true
	}

	current := rv
	ptrSet := make(map[int]bool, len(plan.ptrIndices))
	for _, idx := range plan.ptrIndices {
		ptrSet[idx] = true
	}

	for i, idx := range plan.index {
		current = current.Field(idx)

		if ptrSet[i] {
			if current.IsNil() {
				return reflect.Value{}, false
			}
			current = current.Elem()
		}
	}

	return current, true
}
