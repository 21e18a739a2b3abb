package schema

// Pointer tags that link IFDs together.
const (
	TagExifIFD        uint16 = 0x8769
	TagGPSIFD         uint16 = 0x8825
	TagInteropIFD     uint16 = 0xA005
	TagMakerNote      uint16 = 0x927C
	TagMake           uint16 = 0x010F
	TagThumbnailStart uint16 = 0x0201
	TagThumbnailLen   uint16 = 0x0202
)

var exifTags = []TagDefinition{
	// IFD0 / IFD1
	{0x0100, "ImageWidth", GroupImage, TypeLong, "image"},
	{0x0101, "ImageLength", GroupImage, TypeLong, "image"},
	{0x0102, "BitsPerSample", GroupImage, TypeShort, "image"},
	{0x0103, "Compression", GroupImage, TypeShort, "image"},
	{0x0106, "PhotometricInterpretation", GroupImage, TypeShort, "image"},
	{0x010E, "ImageDescription", GroupImage, TypeASCII, "description"},
	{0x010F, "Make", GroupImage, TypeASCII, "camera"},
	{0x0110, "Model", GroupImage, TypeASCII, "camera"},
	{0x0111, "StripOffsets", GroupImage, TypeLong, "image"},
	{0x0112, "Orientation", GroupImage, TypeShort, "image"},
	{0x0115, "SamplesPerPixel", GroupImage, TypeShort, "image"},
	{0x0116, "RowsPerStrip", GroupImage, TypeLong, "image"},
	{0x0117, "StripByteCounts", GroupImage, TypeLong, "image"},
	{0x011A, "XResolution", GroupImage, TypeRational, "image"},
	{0x011B, "YResolution", GroupImage, TypeRational, "image"},
	{0x011C, "PlanarConfiguration", GroupImage, TypeShort, "image"},
	{0x0128, "ResolutionUnit", GroupImage, TypeShort, "image"},
	{0x0131, "Software", GroupImage, TypeASCII, "description"},
	{0x0132, "DateTime", GroupImage, TypeASCII, "date"},
	{0x013B, "Artist", GroupImage, TypeASCII, "description"},
	{0x013E, "WhitePoint", GroupImage, TypeRational, "image"},
	{0x013F, "PrimaryChromaticities", GroupImage, TypeRational, "image"},
	{0x0201, "JPEGInterchangeFormat", GroupImage, TypeLong, "thumbnail"},
	{0x0202, "JPEGInterchangeFormatLength", GroupImage, TypeLong, "thumbnail"},
	{0x0211, "YCbCrCoefficients", GroupImage, TypeRational, "image"},
	{0x0213, "YCbCrPositioning", GroupImage, TypeShort, "image"},
	{0x0214, "ReferenceBlackWhite", GroupImage, TypeRational, "image"},
	{0x8298, "Copyright", GroupImage, TypeASCII, "description"},
	{0x8769, "ExifIFDPointer", GroupImage, TypeLong, "pointer"},
	{0x8825, "GPSInfoIFDPointer", GroupImage, TypeLong, "pointer"},

	// Exif IFD
	{0x829A, "ExposureTime", GroupExif, TypeRational, "camera"},
	{0x829D, "FNumber", GroupExif, TypeRational, "camera"},
	{0x8822, "ExposureProgram", GroupExif, TypeShort, "camera"},
	{0x8827, "ISOSpeedRatings", GroupExif, TypeShort, "camera"},
	{0x8830, "SensitivityType", GroupExif, TypeShort, "camera"},
	{0x9000, "ExifVersion", GroupExif, TypeUndefined, "version"},
	{0x9003, "DateTimeOriginal", GroupExif, TypeASCII, "date"},
	{0x9004, "DateTimeDigitized", GroupExif, TypeASCII, "date"},
	{0x9010, "OffsetTime", GroupExif, TypeASCII, "date"},
	{0x9011, "OffsetTimeOriginal", GroupExif, TypeASCII, "date"},
	{0x9012, "OffsetTimeDigitized", GroupExif, TypeASCII, "date"},
	{0x9101, "ComponentsConfiguration", GroupExif, TypeUndefined, "image"},
	{0x9102, "CompressedBitsPerPixel", GroupExif, TypeRational, "image"},
	{0x9201, "ShutterSpeedValue", GroupExif, TypeSRational, "camera"},
	{0x9202, "ApertureValue", GroupExif, TypeRational, "camera"},
	{0x9203, "BrightnessValue", GroupExif, TypeSRational, "camera"},
	{0x9204, "ExposureBiasValue", GroupExif, TypeSRational, "camera"},
	{0x9205, "MaxApertureValue", GroupExif, TypeRational, "camera"},
	{0x9206, "SubjectDistance", GroupExif, TypeRational, "camera"},
	{0x9207, "MeteringMode", GroupExif, TypeShort, "camera"},
	{0x9208, "LightSource", GroupExif, TypeShort, "camera"},
	{0x9209, "Flash", GroupExif, TypeShort, "camera"},
	{0x920A, "FocalLength", GroupExif, TypeRational, "camera"},
	{0x9214, "SubjectArea", GroupExif, TypeShort, "camera"},
	{0x927C, "MakerNote", GroupExif, TypeUndefined, "makernote"},
	{0x9286, "UserComment", GroupExif, TypeUndefined, "description"},
	{0x9290, "SubSecTime", GroupExif, TypeASCII, "date"},
	{0x9291, "SubSecTimeOriginal", GroupExif, TypeASCII, "date"},
	{0x9292, "SubSecTimeDigitized", GroupExif, TypeASCII, "date"},
	{0xA000, "FlashpixVersion", GroupExif, TypeUndefined, "version"},
	{0xA001, "ColorSpace", GroupExif, TypeShort, "image"},
	{0xA002, "PixelXDimension", GroupExif, TypeLong, "image"},
	{0xA003, "PixelYDimension", GroupExif, TypeLong, "image"},
	{0xA005, "InteroperabilityIFDPointer", GroupExif, TypeLong, "pointer"},
	{0xA20E, "FocalPlaneXResolution", GroupExif, TypeRational, "camera"},
	{0xA20F, "FocalPlaneYResolution", GroupExif, TypeRational, "camera"},
	{0xA210, "FocalPlaneResolutionUnit", GroupExif, TypeShort, "camera"},
	{0xA217, "SensingMethod", GroupExif, TypeShort, "camera"},
	{0xA300, "FileSource", GroupExif, TypeUndefined, "image"},
	{0xA301, "SceneType", GroupExif, TypeUndefined, "image"},
	{0xA401, "CustomRendered", GroupExif, TypeShort, "image"},
	{0xA402, "ExposureMode", GroupExif, TypeShort, "camera"},
	{0xA403, "WhiteBalance", GroupExif, TypeShort, "camera"},
	{0xA404, "DigitalZoomRatio", GroupExif, TypeRational, "camera"},
	{0xA405, "FocalLengthIn35mmFilm", GroupExif, TypeShort, "camera"},
	{0xA406, "SceneCaptureType", GroupExif, TypeShort, "camera"},
	{0xA408, "Contrast", GroupExif, TypeShort, "camera"},
	{0xA409, "Saturation", GroupExif, TypeShort, "camera"},
	{0xA40A, "Sharpness", GroupExif, TypeShort, "camera"},
	{0xA420, "ImageUniqueID", GroupExif, TypeASCII, "image"},
	{0xA430, "CameraOwnerName", GroupExif, TypeASCII, "camera"},
	{0xA431, "BodySerialNumber", GroupExif, TypeASCII, "camera"},
	{0xA432, "LensSpecification", GroupExif, TypeRational, "camera"},
	{0xA433, "LensMake", GroupExif, TypeASCII, "camera"},
	{0xA434, "LensModel", GroupExif, TypeASCII, "camera"},
	{0xA435, "LensSerialNumber", GroupExif, TypeASCII, "camera"},

	// GPS IFD
	{0x0000, "GPSVersionID", GroupGPS, TypeByte, "gps"},
	{0x0001, "GPSLatitudeRef", GroupGPS, TypeASCII, "gps"},
	{0x0002, "GPSLatitude", GroupGPS, TypeRational, "gps"},
	{0x0003, "GPSLongitudeRef", GroupGPS, TypeASCII, "gps"},
	{0x0004, "GPSLongitude", GroupGPS, TypeRational, "gps"},
	{0x0005, "GPSAltitudeRef", GroupGPS, TypeByte, "gps"},
	{0x0006, "GPSAltitude", GroupGPS, TypeRational, "gps"},
	{0x0007, "GPSTimeStamp", GroupGPS, TypeRational, "gps"},
	{0x0008, "GPSSatellites", GroupGPS, TypeASCII, "gps"},
	{0x0009, "GPSStatus", GroupGPS, TypeASCII, "gps"},
	{0x000A, "GPSMeasureMode", GroupGPS, TypeASCII, "gps"},
	{0x000B, "GPSDOP", GroupGPS, TypeRational, "gps"},
	{0x000C, "GPSSpeedRef", GroupGPS, TypeASCII, "gps"},
	{0x000D, "GPSSpeed", GroupGPS, TypeRational, "gps"},
	{0x0010, "GPSImgDirectionRef", GroupGPS, TypeASCII, "gps"},
	{0x0011, "GPSImgDirection", GroupGPS, TypeRational, "gps"},
	{0x0012, "GPSMapDatum", GroupGPS, TypeASCII, "gps"},
	{0x001B, "GPSProcessingMethod", GroupGPS, TypeUndefined, "gps"},
	{0x001D, "GPSDateStamp", GroupGPS, TypeASCII, "gps"},

	// Interop IFD
	{0x0001, "InteroperabilityIndex", GroupInterop, TypeASCII, "interop"},
	{0x0002, "InteroperabilityVersion", GroupInterop, TypeUndefined, "interop"},
}
