package scone

import (
	"errors"
	"reflect"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
	stgpsr "github.com/yuin/stagparser"
)

// ElevationSample is one persisted terrain-cache row: the sampled
// altitude for a tile, plus enough of the query to validate a cache
// hit. Tagged the way the teacher tags its beam-array structs, narrowed
// to the single attribute this cache actually needs.
type ElevationSample struct {
	Latitude  float64 `tiledb:"dtype=float64,ftype=dim" filters:"zstd(level=16)"`
	Longitude float64 `tiledb:"dtype=float64,ftype=dim" filters:"zstd(level=16)"`
	Elevation float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
}

// schemaAttrs walks t's tiledb-tagged fields, skipping dimensions, and
// adds one attribute per remaining field (same shape as the teacher's
// reflection-driven schema builder, narrowed to ElevationSample's three
// fields, of which only Elevation becomes an attribute).
func schemaAttrs(t any, schema *tiledb.ArraySchema, ctx *tiledb.Context) error {
	filterDefs, _ := stgpsr.ParseStruct(t, "filters")
	tiledbDefs, _ := stgpsr.ParseStruct(t, "tiledb")

	fields := fieldNames(t)
	for _, name := range fields {
		fieldTiledbDefs := make(map[string]stgpsr.Definition)
		for _, v := range tiledbDefs[name] {
			fieldTiledbDefs[v.Name()] = v
		}

		def, ok := fieldTiledbDefs["ftype"]
		if !ok {
			return errors.Join(ErrCreateAttributeTdb, errors.New("ftype tag not found"))
		}
		ftype, _ := def.Attribute("ftype")
		if ftype == "dim" {
			continue
		}

		if err := CreateAttr(name, filterDefs[name], fieldTiledbDefs, schema, ctx); err != nil {
			return errors.Join(ErrCreateAttributeTdb, err)
		}
	}
	return nil
}

// fieldNames lists the exported field names of t, in declaration order.
func fieldNames(t any) []string {
	names := make([]string, 0, 4)
	btype := reflect.TypeOf(t).Elem()
	for i := 0; i < btype.NumField(); i++ {
		if btype.Field(i).IsExported() {
			names = append(names, btype.Field(i).Name)
		}
	}
	return names
}

// ElevationCacheSchema builds the sparse-array schema for the
// elevation cache: two float64 dimensions (lat, lon quantized to tile
// granularity) and one float64 attribute.
func ElevationCacheSchema(ctx *tiledb.Context) (*tiledb.ArraySchema, error) {
	domain, err := tiledb.NewDomain(ctx)
	if err != nil {
		return nil, errors.Join(ErrCreateSchemaTdb, err)
	}
	defer domain.Free()

	latDim, err := tiledb.NewDimension(ctx, "Latitude", tiledb.TILEDB_FLOAT64, []float64{-90, 90}, float64(1))
	if err != nil {
		return nil, errors.Join(ErrCreateDimTdb, err)
	}
	lonDim, err := tiledb.NewDimension(ctx, "Longitude", tiledb.TILEDB_FLOAT64, []float64{-180, 180}, float64(1))
	if err != nil {
		return nil, errors.Join(ErrCreateDimTdb, err)
	}

	if err := domain.AddDimensions(latDim, lonDim); err != nil {
		return nil, errors.Join(ErrCreateDimTdb, err)
	}

	schema, err := tiledb.NewArraySchema(ctx, tiledb.TILEDB_SPARSE)
	if err != nil {
		return nil, errors.Join(ErrCreateSchemaTdb, err)
	}
	if err := schema.SetDomain(domain); err != nil {
		return nil, errors.Join(ErrCreateSchemaTdb, err)
	}
	if err := schema.SetCellOrder(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return nil, errors.Join(ErrCreateSchemaTdb, err)
	}
	if err := schema.SetTileOrder(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return nil, errors.Join(ErrCreateSchemaTdb, err)
	}

	if err := schemaAttrs(&ElevationSample{}, schema, ctx); err != nil {
		return nil, err
	}

	return schema, nil
}

// CreateElevationArray materializes an empty elevation-cache array at
// uri, a narrowed rewrite of the teacher's per-sensor array-creation
// helpers for this single-purpose cache.
func CreateElevationArray(ctx *tiledb.Context, uri string) error {
	schema, err := ElevationCacheSchema(ctx)
	if err != nil {
		return err
	}
	defer schema.Free()

	if err := tiledb.CreateArray(ctx, uri, schema); err != nil {
		return errors.Join(ErrCreateElevationTdb, err)
	}
	return nil
}

// WriteElevationSamples appends samples to the elevation cache array
// at uri in a single write query, keyed by (Latitude, Longitude).
func WriteElevationSamples(ctx *tiledb.Context, uri string, samples []ElevationSample) error {
	array, err := ArrayOpen(ctx, uri, tiledb.TILEDB_WRITE)
	if err != nil {
		return errors.Join(ErrWriteElevationTdb, err)
	}
	defer array.Free()
	defer array.Close()

	query, err := tiledb.NewQuery(ctx, array)
	if err != nil {
		return errors.Join(ErrWriteElevationTdb, err)
	}
	defer query.Free()

	if err := query.SetLayout(tiledb.TILEDB_UNORDERED); err != nil {
		return errors.Join(ErrWriteElevationTdb, err)
	}

	lats := make([]float64, len(samples))
	lons := make([]float64, len(samples))
	elevs := make([]float64, len(samples))
	for i, s := range samples {
		lats[i] = s.Latitude
		lons[i] = s.Longitude
		elevs[i] = s.Elevation
	}

	if _, err := query.SetDataBuffer("Latitude", lats); err != nil {
		return errors.Join(ErrSetBuff, err)
	}
	if _, err := query.SetDataBuffer("Longitude", lons); err != nil {
		return errors.Join(ErrSetBuff, err)
	}
	if _, err := query.SetDataBuffer("Elevation", elevs); err != nil {
		return errors.Join(ErrSetBuff, err)
	}

	if err := query.Submit(); err != nil {
		return errors.Join(ErrWriteElevationTdb, err)
	}
	return nil
}

// ArrayOpen opens a TileDB array at uri in the given mode, kept from
// the teacher's tiledb.go verbatim in spirit (every array-backed
// component in this module opens arrays the same way).
func ArrayOpen(ctx *tiledb.Context, uri string, mode tiledb.QueryType) (*tiledb.Array, error) {
	array, err := tiledb.NewArray(ctx, uri)
	if err != nil {
		return nil, err
	}
	if err := array.Open(mode); err != nil {
		array.Free()
		return nil, err
	}
	return array, nil
}

// AddFilters sequentially appends compression filters to a filter
// pipeline.
func AddFilters(filterList *tiledb.FilterList, filters ...*tiledb.Filter) error {
	for _, filt := range filters {
		if err := filterList.AddFilter(filt); err != nil {
			return err
		}
	}
	return nil
}

// ZstdFilter initialises the Zstandard compression filter at the given
// level -- the only compression filter this module's single cache
// array needs (the teacher's gzip/lz4/rle/bzip2/bitwidth/shuffle
// filters have no consumer here and are not carried forward).
func ZstdFilter(ctx *tiledb.Context, level int32) (*tiledb.Filter, error) {
	filt, err := tiledb.NewFilter(ctx, tiledb.TILEDB_FILTER_ZSTD)
	if err != nil {
		return nil, err
	}
	if err := filt.SetOption(tiledb.TILEDB_COMPRESSION_LEVEL, level); err != nil {
		filt.Free()
		return nil, err
	}
	return filt, nil
}

// CreateAttr builds one TileDB attribute from a struct field's
// `tiledb`/`filters` tags, narrowed from the teacher's CreateAttr to
// the dtypes and filters ElevationSample actually uses
// (float64 + zstd).
func CreateAttr(
	fieldName string,
	filterDefs []stgpsr.Definition,
	tiledbDefs map[string]stgpsr.Definition,
	schema *tiledb.ArraySchema,
	ctx *tiledb.Context,
) error {
	def, ok := tiledbDefs["dtype"]
	if !ok {
		return errors.Join(ErrCreateAttributeTdb, errors.New("dtype tag not found"))
	}
	dtype, _ := def.Attribute("dtype")

	var tdbDtype tiledb.Datatype
	switch dtype {
	case "float64":
		tdbDtype = tiledb.TILEDB_FLOAT64
	case "float32":
		tdbDtype = tiledb.TILEDB_FLOAT32
	case "int32":
		tdbDtype = tiledb.TILEDB_INT32
	case "uint32":
		tdbDtype = tiledb.TILEDB_UINT32
	default:
		return errors.Join(ErrCreateAttributeTdb, errors.New("unsupported dtype: "+dtype.(string)))
	}

	attrFilts, err := tiledb.NewFilterList(ctx)
	if err != nil {
		return errors.Join(ErrCreateAttributeTdb, err)
	}
	defer attrFilts.Free()

	for _, filter := range filterDefs {
		if filter.Name() != "zstd" {
			continue
		}
		level, ok := filter.Attribute("level")
		if !ok {
			return errors.Join(ErrAddFilters, errors.New("zstd level not defined"))
		}
		filt, err := ZstdFilter(ctx, int32(level.(int64)))
		if err != nil {
			return errors.Join(ErrAddFilters, err)
		}
		defer filt.Free()
		if err := attrFilts.AddFilter(filt); err != nil {
			return errors.Join(ErrAddFilters, err)
		}
	}

	attr, err := tiledb.NewAttribute(ctx, fieldName, tdbDtype)
	if err != nil {
		return errors.Join(ErrCreateAttributeTdb, err)
	}
	defer attr.Free()

	if err := attr.SetFilterList(attrFilts); err != nil {
		return errors.Join(ErrCreateAttributeTdb, err)
	}
	if err := schema.AddAttributes(attr); err != nil {
		return errors.Join(ErrCreateAttributeTdb, err)
	}

	return nil
}
