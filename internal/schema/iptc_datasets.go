package schema

// Record numbers and the datasets the parser treats specially.
const (
	RecordEnvelope    uint8 = 1
	RecordApplication uint8 = 2

	DatasetRecordVersion uint8 = 0
	// DatasetCodedCharset (1:90) selects the text encoding of the stream.
	DatasetCodedCharset uint8 = 90
)

var iptcDatasets = []DatasetDefinition{
	{1, 0, "EnvelopeRecordVersion", DatasetUint16, false, 2},
	{1, 5, "Destination", DatasetString, true, 1024},
	{1, 20, "FileFormat", DatasetUint16, false, 2},
	{1, 30, "ServiceIdentifier", DatasetString, false, 10},
	{1, 40, "EnvelopeNumber", DatasetString, false, 8},
	{1, 70, "DateSent", DatasetDate, false, 8},
	{1, 80, "TimeSent", DatasetTime, false, 11},
	{1, 90, "CodedCharacterSet", DatasetBinary, false, 32},
	{1, 100, "UniqueNameOfObject", DatasetString, false, 80},

	{2, 0, "ApplicationRecordVersion", DatasetUint16, false, 2},
	{2, 3, "ObjectTypeReference", DatasetString, false, 67},
	{2, 5, "ObjectName", DatasetString, false, 64},
	{2, 7, "EditStatus", DatasetString, false, 64},
	{2, 10, "Urgency", DatasetString, false, 1},
	{2, 12, "SubjectReference", DatasetString, true, 236},
	{2, 15, "Category", DatasetString, false, 3},
	{2, 20, "SupplementalCategories", DatasetString, true, 32},
	{2, 22, "FixtureIdentifier", DatasetString, false, 32},
	{2, 25, "Keywords", DatasetString, true, 64},
	{2, 26, "ContentLocationCode", DatasetString, true, 3},
	{2, 27, "ContentLocationName", DatasetString, true, 64},
	{2, 30, "ReleaseDate", DatasetDate, false, 8},
	{2, 35, "ReleaseTime", DatasetTime, false, 11},
	{2, 37, "ExpirationDate", DatasetDate, false, 8},
	{2, 38, "ExpirationTime", DatasetTime, false, 11},
	{2, 40, "SpecialInstructions", DatasetString, false, 256},
	{2, 42, "ActionAdvised", DatasetString, false, 2},
	{2, 45, "ReferenceService", DatasetString, true, 10},
	{2, 47, "ReferenceDate", DatasetDate, true, 8},
	{2, 50, "ReferenceNumber", DatasetString, true, 8},
	{2, 55, "DateCreated", DatasetDate, false, 8},
	{2, 60, "TimeCreated", DatasetTime, false, 11},
	{2, 62, "DigitalCreationDate", DatasetDate, false, 8},
	{2, 63, "DigitalCreationTime", DatasetTime, false, 11},
	{2, 65, "OriginatingProgram", DatasetString, false, 32},
	{2, 70, "ProgramVersion", DatasetString, false, 10},
	{2, 75, "ObjectCycle", DatasetString, false, 1},
	{2, 80, "Byline", DatasetString, true, 32},
	{2, 85, "BylineTitle", DatasetString, true, 32},
	{2, 90, "City", DatasetString, false, 32},
	{2, 92, "SubLocation", DatasetString, false, 32},
	{2, 95, "ProvinceState", DatasetString, false, 32},
	{2, 100, "CountryCode", DatasetString, false, 3},
	{2, 101, "CountryName", DatasetString, false, 64},
	{2, 103, "OriginalTransmissionReference", DatasetString, false, 32},
	{2, 105, "Headline", DatasetString, false, 256},
	{2, 110, "Credit", DatasetString, false, 32},
	{2, 115, "Source", DatasetString, false, 32},
	{2, 116, "CopyrightNotice", DatasetString, false, 128},
	{2, 118, "Contact", DatasetString, true, 128},
	{2, 120, "Caption", DatasetString, false, 2000},
	{2, 121, "LocalCaption", DatasetString, false, 256},
	{2, 122, "WriterEditor", DatasetString, true, 32},
	{2, 130, "ImageType", DatasetString, false, 2},
	{2, 131, "ImageOrientation", DatasetString, false, 1},
	{2, 135, "LanguageIdentifier", DatasetString, false, 3},
}
